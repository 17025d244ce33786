// Package postgres is the networked backend. Every statement runs inside a
// read-only transaction, the second layer of the no-mutation guarantee on
// top of the SQL-text validator.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Config struct {
	DSN string
}

type Source struct {
	dsn string

	// openDB is replaced in tests to inject a mocked connection.
	openDB func() (*sql.DB, error)
}

func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	s := &Source{dsn: cfg.DSN}
	s.openDB = func() (*sql.DB, error) {
		db, err := sql.Open("pgx", s.dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		return db, nil
	}
	return s, nil
}

func (s *Source) Kind() string { return "postgres" }

func (s *Source) SchemaText(ctx context.Context) (string, error) {
	columns, rows, err := s.Query(ctx, `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`, 0)
	if err != nil {
		return "", err
	}
	if len(columns) < 3 || len(rows) == 0 {
		return "No user tables found in database.", nil
	}

	tables := make(map[string][]string)
	order := make([]string, 0, 8)
	for _, row := range rows {
		table := fmt.Sprint(row[0])
		column := fmt.Sprint(row[1])
		dataType := strings.ToUpper(fmt.Sprint(row[2]))
		if _, ok := tables[table]; !ok {
			order = append(order, table)
		}
		tables[table] = append(tables[table], column+" "+dataType)
	}

	lines := make([]string, 0, len(order))
	for _, table := range order {
		lines = append(lines, fmt.Sprintf("TABLE %s(%s)", table, strings.Join(tables[table], ", ")))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Source) Query(ctx context.Context, sqlText string, maxRows int) ([]string, [][]any, error) {
	db, err := s.openDB()
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, sqlText)
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
