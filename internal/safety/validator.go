// Package safety validates generated SQL before it may reach any backend.
// The generator is untrusted even after the gatekeeper passes, so this check
// runs once in the pipeline and again inside the execution adapter.
package safety

import (
	"strings"

	"github.com/queryguard/queryguard/internal/rules"
)

type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// Validate applies the syntactic allow-list checks in order; the first
// failure wins. It never mutates the statement and has no side effects.
func Validate(sql string) Result {
	s := strings.TrimSpace(sql)
	if s == "" {
		return Result{OK: false, Reason: "Empty SQL."}
	}
	if !rules.SelectStart.MatchString(s) {
		return Result{OK: false, Reason: "Only SELECT queries are allowed."}
	}
	if strings.Contains(s, ";") {
		return Result{OK: false, Reason: "Multiple statements are not allowed."}
	}
	for _, token := range rules.Tokenize(s) {
		if rules.IsDestructiveToken(token) {
			return Result{OK: false, Reason: "Blocked keyword: " + strings.ToUpper(token)}
		}
	}
	if col := rules.FindPIIReference(s); col != "" {
		return Result{OK: false, Reason: "PII column not allowed: " + col}
	}
	return Result{OK: true, Reason: "OK"}
}

// ReasonClass folds the human-readable reason into a low-cardinality label
// suitable for metrics.
func (r Result) ReasonClass() string {
	switch {
	case r.OK:
		return "ok"
	case r.Reason == "Empty SQL.":
		return "empty"
	case r.Reason == "Only SELECT queries are allowed.":
		return "not_select"
	case r.Reason == "Multiple statements are not allowed.":
		return "multi_statement"
	case strings.HasPrefix(r.Reason, "Blocked keyword"):
		return "blocked_keyword"
	case strings.HasPrefix(r.Reason, "PII column"):
		return "pii_column"
	default:
		return "other"
	}
}
