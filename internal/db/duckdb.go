package db

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/apex/log"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/pkg/errors"
)

// Config holds database configuration. An empty DataDir opens an in-memory
// database.
type Config struct {
	DataDir string
	DBName  string
}

// Open opens a DuckDB connection.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, errors.Wrap(err, "creating duckdb directory")
		}
		name := cfg.DBName
		if name == "" {
			name = "geo"
		}
		dsn = filepath.Join(duckdbDir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening duckdb")
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "connecting to duckdb")
	}
	// a single connection keeps an in-memory database shared across queries
	conn.SetMaxOpenConns(1)

	log.WithField("path", dsnLabel(dsn)).Debug("duckdb opened")
	return conn, nil
}

func dsnLabel(dsn string) string {
	if dsn == "" {
		return ":memory:"
	}
	return dsn
}
