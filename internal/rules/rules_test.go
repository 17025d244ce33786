package rules

import (
	"reflect"
	"testing"
)

func TestIsDestructiveToken(t *testing.T) {
	for _, verb := range DestructiveVerbs {
		if !IsDestructiveToken(verb) {
			t.Fatalf("IsDestructiveToken(%q) = false", verb)
		}
	}
	if !IsDestructiveToken("delete") {
		t.Fatal("expected lowercase token to match")
	}
	if IsDestructiveToken("SELECTED") {
		t.Fatal("SELECTED should not match any verb")
	}
}

func TestContainsDestructiveVerb(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"please DROP the table", true},
		{"delete all transactions from 2024", true},
		{"show the total amount per commune", false},
		{"the dropout rate of clients", false},
		{"updated figures for march", false},
		{"can you update the record", true},
	}
	for _, tc := range cases {
		if got := ContainsDestructiveVerb(tc.text); got != tc.want {
			t.Errorf("ContainsDestructiveVerb(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestIsPIIColumn(t *testing.T) {
	for _, column := range PIIColumns {
		if !IsPIIColumn(column) {
			t.Fatalf("IsPIIColumn(%q) = false", column)
		}
	}
	if !IsPIIColumn("  NOM ") {
		t.Fatal("expected trimmed uppercase match")
	}
	if IsPIIColumn("nombre") {
		t.Fatal("nombre must not match nom")
	}
}

func TestFindPIIReference(t *testing.T) {
	if got := FindPIIReference("SELECT nom, montant FROM clients"); got != "nom" {
		t.Fatalf("FindPIIReference() = %q, want %q", got, "nom")
	}
	if got := FindPIIReference("SELECT montant FROM clients"); got != "" {
		t.Fatalf("FindPIIReference() = %q, want empty", got)
	}
	if got := FindPIIReference("prenom-based analysis"); got != "prenom" {
		t.Fatalf("FindPIIReference() = %q, want %q", got, "prenom")
	}
	// date_naissance must survive tokenization as one token.
	if got := FindPIIReference("show date_naissance for everyone"); got != "date_naissance" {
		t.Fatalf("FindPIIReference() = %q, want %q", got, "date_naissance")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("SELECT nom, date_naissance FROM clients;")
	want := []string{"SELECT", "nom", "date_naissance", "FROM", "clients"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	if len(Tokenize("   ")) != 0 {
		t.Fatal("expected no tokens for whitespace input")
	}
}

func TestInjectionMarkers(t *testing.T) {
	for _, sample := range []string{"a;b", "a -- b", "a /* b", "b */ c"} {
		if !InjectionMarkers.MatchString(sample) {
			t.Errorf("InjectionMarkers should match %q", sample)
		}
	}
	if InjectionMarkers.MatchString("plain question about clients") {
		t.Fatal("InjectionMarkers matched plain text")
	}
}

func TestSQLLikeStart(t *testing.T) {
	if !SQLLikeStart.MatchString("  select * from clients") {
		t.Fatal("expected leading SELECT to match")
	}
	if SQLLikeStart.MatchString("what does SELECT mean?") {
		t.Fatal("mid-sentence SELECT must not match")
	}
}
