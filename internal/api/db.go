package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/pkg/errors"

	"github.com/benatfroemming/mapping-tool/internal/db"
)

// CatalogHandler exposes the feature catalog over SQL.
type CatalogHandler struct {
	catalog *db.Catalog
}

// NewCatalogHandler creates a catalog handler. A nil catalog answers 503.
func NewCatalogHandler(catalog *db.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("catalog"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("catalog"))
}

// TablesBody lists the catalog tables.
type TablesBody struct {
	Tables []string `json:"tables" doc:"Catalog table names"`
}

// QueryInput carries one read statement.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"Read-only SQL, e.g. SELECT geom_type, count(*) FROM features GROUP BY geom_type"`
	}
}

// QueryBody is a query result.
type QueryBody struct {
	Columns []string         `json:"columns" doc:"Column names"`
	Rows    []map[string]any `json:"rows" doc:"One object per row, keyed by column"`
	Count   int              `json:"count" doc:"Number of rows returned"`
}

func (h *CatalogHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.catalog == nil {
		return nil, huma.Error503ServiceUnavailable("Feature catalog not available")
	}
	tables, err := h.catalog.Tables(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, nil
}

// Query runs a read statement against the catalog. Statements that would
// change the tables are refused.
func (h *CatalogHandler) Query(ctx context.Context, input *QueryInput) (*struct{ Body QueryBody }, error) {
	if h.catalog == nil {
		return nil, huma.Error503ServiceUnavailable("Feature catalog not available")
	}
	res, err := h.catalog.Query(ctx, input.Body.Query)
	if errors.Is(err, db.ErrReadOnly) {
		return nil, huma.Error403Forbidden(err.Error())
	}
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	return &struct{ Body QueryBody }{Body: QueryBody{
		Columns: res.Columns,
		Rows:    res.Rows,
		Count:   len(res.Rows),
	}}, nil
}
