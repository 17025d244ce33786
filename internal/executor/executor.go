// Package executor runs an already-validated statement against a selected
// backend. The safety validator runs again here because a caller may invoke
// the adapter directly, bypassing the pipeline.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/queryguard/queryguard/internal/observability"
	"github.com/queryguard/queryguard/internal/safety"
	"github.com/queryguard/queryguard/internal/source"
)

// DefaultRowCap bounds how many rows one execution may return.
const DefaultRowCap = 200

// QueryResult is produced once per execution and not mutated afterwards.
// Rows share a fixed arity equal to len(Columns).
type QueryResult struct {
	OK      bool     `json:"ok"`
	SQL     string   `json:"sql"`
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Execute re-validates the statement, runs it read-only against src and
// fetches at most rowCap rows (DefaultRowCap when rowCap <= 0). Backend
// failures are surfaced in the result, never as a fault to the caller.
func Execute(ctx context.Context, src source.Source, sqlText string, rowCap int) QueryResult {
	if verdict := safety.Validate(sqlText); !verdict.OK {
		observability.ObserveBlockedSQL(verdict.ReasonClass())
		return QueryResult{OK: false, SQL: sqlText, Error: verdict.Reason}
	}
	if src == nil {
		return QueryResult{OK: false, SQL: sqlText, Error: "no data source configured"}
	}
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}

	start := time.Now()
	columns, rows, err := src.Query(ctx, sqlText, rowCap)
	observability.ObserveQueryDuration(src.Kind(), time.Since(start))
	if err != nil {
		return QueryResult{OK: false, SQL: sqlText, Error: fmt.Sprintf("SQL execution error: %v", err)}
	}
	return QueryResult{OK: true, SQL: sqlText, Columns: columns, Rows: rows}
}
