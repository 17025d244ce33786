// Package duckdb is the local analytics-file backend. The database file is
// attached with access_mode=read_only so the transport itself cannot write.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

type Config struct {
	Path string
}

type Source struct {
	path string
}

func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("duckdb path is required")
	}
	return &Source{path: cfg.Path}, nil
}

func (s *Source) Kind() string { return "duckdb" }

func (s *Source) open() (*sql.DB, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("duckdb database not found: %w", err)
	}
	db, err := sql.Open("duckdb", s.path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

func (s *Source) SchemaText(ctx context.Context) (string, error) {
	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'main'
ORDER BY table_name, ordinal_position`)
	if err != nil {
		return "", fmt.Errorf("list columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make(map[string][]string)
	order := make([]string, 0, 8)
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return "", fmt.Errorf("scan column info: %w", err)
		}
		if _, ok := tables[table]; !ok {
			order = append(order, table)
		}
		tables[table] = append(tables[table], column+" "+strings.ToUpper(dataType))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate columns: %w", err)
	}
	if len(order) == 0 {
		return "No user tables found in database.", nil
	}

	lines := make([]string, 0, len(order))
	for _, table := range order {
		lines = append(lines, fmt.Sprintf("TABLE %s(%s)", table, strings.Join(tables[table], ", ")))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Source) Query(ctx context.Context, sqlText string, maxRows int) ([]string, [][]any, error) {
	db, err := s.open()
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("query columns: %w", err)
	}

	out := make([][]any, 0)
	for rows.Next() {
		if maxRows > 0 && len(out) >= maxRows {
			break
		}
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, out, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
