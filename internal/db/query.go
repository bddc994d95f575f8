package db

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// ErrReadOnly is returned for statements that would change the catalog.
var ErrReadOnly = errors.New("only SELECT, WITH, SHOW, DESCRIBE and SUMMARIZE statements are allowed")

var readVerbs = map[string]bool{
	"select":    true,
	"with":      true,
	"show":      true,
	"describe":  true,
	"summarize": true,
}

// Result is a query result with rows keyed by column.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Tables lists the catalog tables.
func (c *Catalog) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, errors.Wrap(err, "listing tables")
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scanning table name")
		}
		tables = append(tables, name)
	}
	return tables, errors.Wrap(rows.Err(), "listing tables")
}

// Query runs one read statement. It runs inside a transaction that is
// always rolled back, so the tables keep mirroring the layer store.
func (c *Catalog) Query(ctx context.Context, query string) (Result, error) {
	query, err := readStatement(query)
	if err != nil {
		return Result{}, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, errors.Wrap(err, "reading columns")
	}

	res := Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, errors.Wrap(err, "scanning row")
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res, errors.Wrap(rows.Err(), "reading rows")
}

// readStatement trims a trailing semicolon and checks that query is a
// single statement starting with a read verb.
func readStatement(query string) (string, error) {
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	if strings.Contains(query, ";") {
		return "", errors.Wrap(ErrReadOnly, "multiple statements")
	}
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "", errors.New("empty query")
	}
	if !readVerbs[strings.ToLower(fields[0])] {
		return "", errors.Wrapf(ErrReadOnly, "%s statement", strings.ToUpper(fields[0]))
	}
	return query, nil
}
