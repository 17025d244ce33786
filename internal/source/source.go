// Package source abstracts the read-only relational backends the execution
// adapter can target. A backend is selected once per process from
// configuration; explicit choice wins over auto-detection, and auto-detection
// prefers the networked backend when its connection parameters are present.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/queryguard/queryguard/internal/source/duckdb"
	"github.com/queryguard/queryguard/internal/source/postgres"
	"github.com/queryguard/queryguard/internal/source/sqlite"
)

const (
	KindSQLite   = "sqlite"
	KindDuckDB   = "duckdb"
	KindPostgres = "postgres"
)

// Source is a read-only data source. Every call opens and releases its own
// connection; implementations hold configuration only and are safe for
// concurrent use.
type Source interface {
	Kind() string
	SchemaText(ctx context.Context) (string, error)
	Query(ctx context.Context, sqlText string, maxRows int) (columns []string, rows [][]any, err error)
}

type Config struct {
	Kind        string
	SQLitePath  string
	DuckDBPath  string
	PostgresDSN string
}

// Resolve picks the concrete backend: an explicit kind is honored, otherwise
// postgres when a DSN is configured, otherwise the local sqlite file.
func Resolve(cfg Config) (Source, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" {
		if strings.TrimSpace(cfg.PostgresDSN) != "" {
			kind = KindPostgres
		} else {
			kind = KindSQLite
		}
	}

	switch kind {
	case KindSQLite:
		return sqlite.New(sqlite.Config{Path: cfg.SQLitePath})
	case KindDuckDB:
		return duckdb.New(duckdb.Config{Path: cfg.DuckDBPath})
	case KindPostgres:
		return postgres.New(postgres.Config{DSN: cfg.PostgresDSN})
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
