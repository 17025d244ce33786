package format

import (
	"fmt"
	"strings"
	"testing"
)

func TestFormatRefusesPIIColumns(t *testing.T) {
	answer := Format([]string{"nom", "montant"}, [][]any{{"Dupont", 12.0}}, Options{})
	if answer.Text != "Refus: la requête tente d'exposer des données personnelles." {
		t.Fatalf("Text = %q", answer.Text)
	}
	if answer.Table != "" || len(answer.PreviewRows) != 0 {
		t.Fatalf("refusal leaked data: %+v", answer)
	}
}

func TestFormatEmptyResult(t *testing.T) {
	answer := Format([]string{"commune"}, nil, Options{})
	if answer.Text != "Aucun résultat." {
		t.Fatalf("Text = %q", answer.Text)
	}
	if !strings.Contains(answer.Table, "commune") {
		t.Fatalf("Table = %q, want header-only grid", answer.Table)
	}
	if answer.TotalRows != 0 {
		t.Fatalf("TotalRows = %d", answer.TotalRows)
	}
}

func TestFormatSingleCell(t *testing.T) {
	answer := Format([]string{"total"}, [][]any{{42}}, Options{})
	if answer.Text != "total = 42" {
		t.Fatalf("Text = %q", answer.Text)
	}
	if answer.TotalRows != 1 || answer.PreviewRowCount != 1 {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestFormatTwoColumnRankedList(t *testing.T) {
	rows := [][]any{{"Paris", 120.0}, {"Lyon", 80.0}}
	answer := Format([]string{"commune", "total"}, rows, Options{})

	lines := strings.Split(answer.Text, "\n")
	if lines[0] != "Top 2 (commune → total):" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "- Paris : 120" || lines[2] != "- Lyon : 80" {
		t.Fatalf("bullets = %v", lines[1:])
	}
	if strings.Contains(answer.Text, "tronqué") {
		t.Fatalf("unexpected truncation note: %q", answer.Text)
	}
}

func TestFormatTwoColumnTruncationNote(t *testing.T) {
	rows := make([][]any, 250)
	for i := range rows {
		rows[i] = []any{fmt.Sprintf("c%d", i), i}
	}
	answer := Format([]string{"commune", "total"}, rows, Options{})
	if !strings.HasPrefix(answer.Text, "Top 200 (commune → total):") {
		t.Fatalf("header = %q", strings.SplitN(answer.Text, "\n", 2)[0])
	}
	if !strings.HasSuffix(answer.Text, "(affichage tronqué: 200/250)") {
		t.Fatalf("missing truncation note: %q", answer.Text[len(answer.Text)-40:])
	}
	if answer.PreviewRowCount != DefaultMaxPreviewRows {
		t.Fatalf("PreviewRowCount = %d", answer.PreviewRowCount)
	}
}

func TestFormatWideResultSummary(t *testing.T) {
	rows := make([][]any, 30)
	for i := range rows {
		rows[i] = []any{i, "premium", "Paris"}
	}
	answer := Format([]string{"id", "segment", "commune"}, rows, Options{})
	if answer.Text != "Résultats: 30 lignes. Aperçu: 20 lignes. (tronqué à 20)" {
		t.Fatalf("Text = %q", answer.Text)
	}
	if answer.PreviewRowCount != 20 || answer.TotalRows != 30 {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestFormatGridShape(t *testing.T) {
	answer := Format([]string{"id", "commune"}, [][]any{{1, "Paris"}}, Options{})
	want := strings.Join([]string{
		"+----+---------+",
		"| id | commune |",
		"+----+---------+",
		"| 1  | Paris   |",
		"+----+---------+",
	}, "\n")
	if answer.Table != want {
		t.Fatalf("Table =\n%s\nwant\n%s", answer.Table, want)
	}
}

func TestDisplayString(t *testing.T) {
	cases := []struct {
		value any
		want  string
	}{
		{nil, ""},
		{float64(120.5000), "120.5"},
		{float64(3.14159), "3.1416"},
		{float64(100), "100"},
		{float32(2.5), "2.5"},
		{int64(7), "7"},
		{"texte", "texte"},
		{true, "true"},
	}
	for _, tc := range cases {
		if got := displayString(tc.value); got != tc.want {
			t.Errorf("displayString(%#v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("a long cell value", 6); got != "a lon…" {
		t.Fatalf("shorten() = %q", got)
	}
	if got := shorten("ligne\nsuivante", 32); got != "ligne suivante" {
		t.Fatalf("shorten() = %q", got)
	}
	if got := shorten("été à Paris", 5); got != "été …" {
		t.Fatalf("shorten() = %q", got)
	}
}

func TestFromRecords(t *testing.T) {
	rows := FromRecords([]string{"commune", "total"}, []map[string]any{
		{"commune": "Paris", "total": 120.0},
		{"total": 80.0},
	})
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	if rows[0][0] != "Paris" || rows[1][0] != nil {
		t.Fatalf("rows = %v", rows)
	}
}
