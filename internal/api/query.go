package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/queryguard/queryguard/internal/executor"
	"github.com/queryguard/queryguard/internal/safety"
)

type schemaResponse struct {
	Source string `json:"source"`
	Schema string `json:"schema"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Source == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SOURCE_NOT_CONFIGURED", "data source is not configured", false, nil)
		return
	}
	if err := requireRole(r, "schema_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	schema, err := deps.Source.SchemaText(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_UNAVAILABLE", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Source: deps.Source.Kind(), Schema: schema})
}

type sqlQueryRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Source == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SOURCE_NOT_CONFIGURED", "data source is not configured", false, nil)
		return
	}
	if err := requireRole(r, "pipeline_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request sqlQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	if verdict := safety.Validate(request.SQL); !verdict.OK {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", verdict.Reason, false, nil)
		return
	}

	rowCap := request.RowLimit
	if rowCap <= 0 || (deps.RowCap > 0 && rowCap > deps.RowCap) {
		rowCap = deps.RowCap
	}
	result := executor.Execute(r.Context(), deps.Source, request.SQL, rowCap)
	if !result.OK {
		writeError(r.Context(), w, http.StatusBadGateway, "QUERY_FAILED", result.Error, true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns":   result.Columns,
		"rows":      result.Rows,
		"row_count": len(result.Rows),
	})
}
