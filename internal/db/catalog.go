package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/benatfroemming/mapping-tool/internal/service"
)

const schema = `
CREATE TABLE IF NOT EXISTS layers (
	id         VARCHAR PRIMARY KEY,
	name       VARCHAR,
	features   INTEGER,
	created_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS features (
	layer_id   VARCHAR,
	idx        INTEGER,
	geom_type  VARCHAR,
	properties VARCHAR
);`

// Catalog mirrors loaded layers into DuckDB tables so they can be queried
// with SQL. It is a read model: the layer store stays authoritative.
type Catalog struct {
	db    *sql.DB
	store *service.LayerService
}

// NewCatalog creates the catalog tables.
func NewCatalog(conn *sql.DB) (*Catalog, error) {
	if _, err := conn.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "creating catalog tables")
	}
	return &Catalog{db: conn}, nil
}

// Attach indexes every record already in store and follows its mutations.
func (c *Catalog) Attach(store *service.LayerService) error {
	c.store = store
	for _, rec := range store.List() {
		if err := c.Index(context.Background(), rec); err != nil {
			return err
		}
	}
	store.Subscribe(c.handle)
	return nil
}

func (c *Catalog) handle(e service.Event) {
	ctx := context.Background()
	logger := log.WithField("layer", e.ID)

	switch e.Action {
	case service.ActionCreated:
		rec, ok := c.store.Get(e.ID)
		if !ok {
			return
		}
		if err := c.Index(ctx, rec); err != nil {
			logger.WithError(err).Error("catalog index failed")
		}
	case service.ActionRemoved:
		if err := c.Drop(ctx, e.ID); err != nil {
			logger.WithError(err).Error("catalog drop failed")
		}
	}
}

// Index writes one record and its features.
func (c *Catalog) Index(ctx context.Context, rec service.Record) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO layers (id, name, features, created_at) VALUES (?, ?, ?, ?)",
		rec.ID, rec.Name, rec.FeatureCount(), rec.CreatedAt); err != nil {
		return errors.Wrapf(err, "indexing layer %s", rec.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO features (layer_id, idx, geom_type, properties) VALUES (?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	if rec.Features != nil {
		for i, f := range rec.Features.Features {
			if f == nil {
				continue
			}
			geomType := ""
			if f.Geometry != nil {
				geomType = f.Geometry.GeoJSONType()
			}
			props, err := json.Marshal(f.Properties)
			if err != nil {
				return errors.Wrapf(err, "encoding properties of feature %d", i)
			}
			if _, err := stmt.ExecContext(ctx, rec.ID, i, geomType, string(props)); err != nil {
				return errors.Wrapf(err, "indexing feature %d", i)
			}
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// Drop removes a layer's rows. Unknown ids are a no-op.
func (c *Catalog) Drop(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM features WHERE layer_id = ?", id); err != nil {
		return errors.Wrapf(err, "dropping features of %s", id)
	}
	if _, err := c.db.ExecContext(ctx, "DELETE FROM layers WHERE id = ?", id); err != nil {
		return errors.Wrapf(err, "dropping layer %s", id)
	}
	return nil
}
