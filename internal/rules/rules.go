// Package rules holds the canonical keyword sets and patterns shared by the
// router, the gatekeeper, the SQL validator and the result formatter. Every
// stage matches against these tables so the lists cannot drift apart.
package rules

import (
	"regexp"
	"strings"
)

// DestructiveVerbs is the single merged blocklist applied to both raw user
// input and generated SQL. Matching is against whole uppercase tokens.
var DestructiveVerbs = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "ATTACH", "DETACH",
	"PRAGMA", "COPY", "CREATE", "REPLACE", "TRUNCATE",
}

// PIIColumns are the restricted personal-data fields of the dataset. They are
// excluded from querying and from display, in natural language and in SQL.
var PIIColumns = []string{"nom", "prenom", "date_naissance"}

var (
	destructiveVerbSet = toSet(DestructiveVerbs)
	piiColumnSet       = toSet(PIIColumns)
)

var (
	// DataEntityHints flags questions that mention entities of the dataset.
	DataEntityHints = regexp.MustCompile(`(?i)\b(clients?|dossiers?|transactions?|montant|segment|commune|enseigne|categorie_achat|taux|solde|incident)\b`)

	// RankingPattern flags "top N" style questions that need a metric and a
	// time range before they can be answered.
	RankingPattern = regexp.MustCompile(`(?i)\b(top|best|worst|highest|lowest|meilleur|pire)\b`)

	// MetricHints and TimeHints recognize the slots a ranking question needs.
	MetricHints = regexp.MustCompile(`(?i)\b(montant|total|sum|count|nombre|avg|average|moyenne|max|min|spend|dépense|transactions?|dossiers?)\b`)
	TimeHints   = regexp.MustCompile(`(?i)\b(20\d{2}|mois|month|année|year|entre|from|to|depuis|avant|après)\b`)

	// SQLLikeStart matches raw user input that is itself a SQL statement.
	SQLLikeStart = regexp.MustCompile(`(?i)^\s*(SELECT|UPDATE|DELETE|INSERT|DROP|ALTER|PRAGMA|ATTACH|CREATE|REPLACE|COPY|TRUNCATE)\b`)

	// InjectionMarkers matches statement separators and comment markers.
	InjectionMarkers = regexp.MustCompile(`(;|--|/\*|\*/)`)

	// SelectStart accepts a generated statement as a read-only SELECT.
	SelectStart = regexp.MustCompile(`(?i)^\s*SELECT\b`)

	// PieHints detects share/proportion vocabulary in a question.
	PieHints = regexp.MustCompile(`(?i)\b(share|proportion|percentage|percent|part)\b`)

	// DateNameHint flags column names that likely carry dates.
	DateNameHint = regexp.MustCompile(`(?i)(date|time|month|year)`)

	// ISODate and ISOMonth recognize date-like first values of a column.
	ISODate  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	ISOMonth = regexp.MustCompile(`^\d{4}-\d{2}$`)

	tokenSplit = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// IsDestructiveToken reports whether the uppercased token is a blocked verb.
func IsDestructiveToken(token string) bool {
	_, ok := destructiveVerbSet[strings.ToUpper(token)]
	return ok
}

// ContainsDestructiveVerb tokenizes text on non-alphanumeric boundaries and
// reports whether any token is a blocked verb.
func ContainsDestructiveVerb(text string) bool {
	for _, token := range Tokenize(text) {
		if IsDestructiveToken(token) {
			return true
		}
	}
	return false
}

// IsPIIColumn reports whether the column name is a restricted field.
func IsPIIColumn(name string) bool {
	_, ok := piiColumnSet[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// FindPIIReference returns the first restricted field referenced as a whole
// word anywhere in text, or "" when none appears.
func FindPIIReference(text string) string {
	for _, token := range Tokenize(text) {
		if IsPIIColumn(token) {
			return strings.ToLower(token)
		}
	}
	return ""
}

// Tokenize splits text on non-alphanumeric boundaries, keeping underscores so
// column names like date_naissance survive as single tokens.
func Tokenize(text string) []string {
	fields := tokenSplit.Split(text, -1)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if field != "" {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[strings.ToUpper(value)] = struct{}{}
	}
	return set
}
