package safety

import (
	"strings"
	"testing"
)

func TestValidateAcceptsPlainSelect(t *testing.T) {
	result := Validate("SELECT commune, SUM(montant) AS total FROM transactions GROUP BY commune LIMIT 200")
	if !result.OK {
		t.Fatalf("Validate() rejected safe SQL: %q", result.Reason)
	}
	if result.Reason != "OK" {
		t.Fatalf("Reason = %q", result.Reason)
	}
}

func TestValidateEmpty(t *testing.T) {
	for _, sql := range []string{"", "   ", "\n"} {
		result := Validate(sql)
		if result.OK || result.Reason != "Empty SQL." {
			t.Fatalf("Validate(%q) = %+v", sql, result)
		}
	}
}

func TestValidateRejectsNonSelect(t *testing.T) {
	result := Validate("WITH t AS (SELECT 1) SELECT * FROM t")
	if result.OK {
		t.Fatal("expected WITH statement to be rejected")
	}
	if result.Reason != "Only SELECT queries are allowed." {
		t.Fatalf("Reason = %q", result.Reason)
	}
}

func TestValidateRejectsSemicolon(t *testing.T) {
	result := Validate("SELECT 1; SELECT 2")
	if result.OK || result.Reason != "Multiple statements are not allowed." {
		t.Fatalf("Validate() = %+v", result)
	}
	// A single trailing semicolon is still a separator.
	result = Validate("SELECT 1;")
	if result.OK {
		t.Fatal("trailing semicolon must be rejected")
	}
}

func TestValidateBlockedKeywords(t *testing.T) {
	cases := []struct {
		sql  string
		verb string
	}{
		{"SELECT * FROM clients WHERE id IN (DELETE FROM clients)", "DELETE"},
		{"SELECT drop FROM t", "DROP"},
		{"SELECT * FROM (INSERT INTO t VALUES (1))", "INSERT"},
	}
	for _, tc := range cases {
		result := Validate(tc.sql)
		if result.OK {
			t.Errorf("Validate(%q) accepted destructive SQL", tc.sql)
			continue
		}
		if result.Reason != "Blocked keyword: "+tc.verb {
			t.Errorf("Validate(%q).Reason = %q", tc.sql, result.Reason)
		}
	}
}

func TestValidateBlockedKeywordWholeWordOnly(t *testing.T) {
	result := Validate("SELECT updated_at FROM dossiers LIMIT 10")
	if !result.OK {
		t.Fatalf("substring of a blocked verb must pass, got %q", result.Reason)
	}
}

func TestValidatePIIColumns(t *testing.T) {
	result := Validate("SELECT nom, prenom FROM clients")
	if result.OK {
		t.Fatal("expected PII columns to be rejected")
	}
	if !strings.HasPrefix(result.Reason, "PII column not allowed: ") {
		t.Fatalf("Reason = %q", result.Reason)
	}
	// nombre contains nom but is not a restricted field.
	if result := Validate("SELECT nombre FROM stats"); !result.OK {
		t.Fatalf("nombre rejected: %q", result.Reason)
	}
}

func TestValidateIdempotent(t *testing.T) {
	sql := "SELECT segment, COUNT(*) FROM clients GROUP BY segment"
	first := Validate(sql)
	second := Validate(sql)
	if first != second {
		t.Fatalf("Validate() not deterministic: %+v vs %+v", first, second)
	}
}

func TestReasonClass(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{"SELECT 1", "ok"},
		{"", "empty"},
		{"SHOW TABLES", "not_select"},
		{"SELECT 1; SELECT 2", "multi_statement"},
		{"SELECT drop FROM t", "blocked_keyword"},
		{"SELECT nom FROM clients", "pii_column"},
	}
	for _, tc := range cases {
		if got := Validate(tc.sql).ReasonClass(); got != tc.want {
			t.Errorf("ReasonClass(%q) = %q, want %q", tc.sql, got, tc.want)
		}
	}
}
