// Package sqlite is the local file-based backend, opened in read-only mode
// at the driver level so no statement can mutate the file regardless of the
// SQL text it carries.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

type Config struct {
	Path string
}

type Source struct {
	path string
}

func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	return &Source{path: cfg.Path}, nil
}

func (s *Source) Kind() string { return "sqlite" }

func (s *Source) open() (*sql.DB, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("sqlite database not found: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	return db, nil
}

// SchemaText lists user tables with their columns, types and primary keys in
// the newline-separated "TABLE name(col TYPE, ...)" format the generator is
// prompted with.
func (s *Source) SchemaText(ctx context.Context) (string, error) {
	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	tableRows, err := db.QueryContext(ctx, `
SELECT name
FROM sqlite_master
WHERE type = 'table'
  AND name NOT LIKE 'sqlite_%'
ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = tableRows.Close() }()

	tables := make([]string, 0, 8)
	for tableRows.Next() {
		var name string
		if err := tableRows.Scan(&name); err != nil {
			return "", fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := tableRows.Err(); err != nil {
		return "", fmt.Errorf("iterate tables: %w", err)
	}
	if len(tables) == 0 {
		return "No user tables found in database.", nil
	}

	lines := make([]string, 0, len(tables))
	for _, table := range tables {
		cols, err := tableColumns(ctx, db, table)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("TABLE %s(%s)", table, strings.Join(cols, ", ")))
	}
	return strings.Join(lines, "\n"), nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info for %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make([]string, 0, 8)
	for rows.Next() {
		var cid, notNull, pkIndex int
		var name string
		var colType, dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pkIndex); err != nil {
			return nil, fmt.Errorf("scan column info for %q: %w", table, err)
		}
		typeName := strings.ToUpper(strings.TrimSpace(colType.String))
		if typeName == "" {
			typeName = "TEXT"
		}
		col := name + " " + typeName
		if pkIndex > 0 {
			col += " PRIMARY KEY"
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column info for %q: %w", table, err)
	}
	return cols, nil
}

// Query runs one statement and returns at most maxRows rows in result order.
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

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
