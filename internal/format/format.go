// Package format turns an arbitrary column/row result into a compact textual
// answer, a bounded grid preview and, when the shape allows it, a chart
// specification. It re-checks restricted columns on its own: even if every
// upstream gate were bypassed, personal data never renders.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/queryguard/queryguard/internal/rules"
)

const (
	DefaultMaxPreviewRows = 20
	DefaultMaxColWidth    = 32

	// rankedListCap bounds the two-column bullet list.
	rankedListCap = 200

	refusalText  = "Refus: la requête tente d'exposer des données personnelles."
	noResultText = "Aucun résultat."
)

type Options struct {
	MaxPreviewRows int
	MaxColWidth    int
}

func (o Options) withDefaults() Options {
	if o.MaxPreviewRows <= 0 {
		o.MaxPreviewRows = DefaultMaxPreviewRows
	}
	if o.MaxColWidth <= 0 {
		o.MaxColWidth = DefaultMaxColWidth
	}
	return o
}

// Answer is the display form of one query result.
type Answer struct {
	Text            string     `json:"text"`
	Table           string     `json:"table"`
	PreviewRows     [][]string `json:"preview_rows"`
	PreviewRowCount int        `json:"preview_row_count"`
	TotalRows       int        `json:"total_rows"`
}

// FromRecords normalizes column-keyed records into ordered rows matching the
// column order. Missing keys become nil cells.
func FromRecords(columns []string, records []map[string]any) [][]any {
	rows := make([][]any, 0, len(records))
	for _, record := range records {
		row := make([]any, len(columns))
		for i, column := range columns {
			row[i] = record[column]
		}
		rows = append(rows, row)
	}
	return rows
}

// Format renders columns and rows. Shape selection: restricted column →
// fixed refusal; zero rows → fixed empty text; one cell → "col = value"
// sentence; two columns → ranked bullet list; anything else → row-count
// summary plus grid preview.
func Format(columns []string, rows [][]any, opts Options) Answer {
	opts = opts.withDefaults()

	for _, column := range columns {
		if rules.IsPIIColumn(column) {
			return Answer{Text: refusalText, Table: "", PreviewRows: [][]string{}}
		}
	}

	totalRows := len(rows)
	preview := stringifyRows(rows, opts.MaxPreviewRows)

	if totalRows == 0 {
		table := ""
		if len(columns) > 0 {
			table = renderGrid(columns, nil, opts.MaxColWidth)
		}
		return Answer{Text: noResultText, Table: table, PreviewRows: [][]string{}}
	}

	if len(columns) == 1 && totalRows == 1 {
		value := preview[0][0]
		return Answer{
			Text:            columns[0] + " = " + value,
			Table:           renderGrid(columns, preview, opts.MaxColWidth),
			PreviewRows:     preview,
			PreviewRowCount: len(preview),
			TotalRows:       totalRows,
		}
	}

	if len(columns) == 2 {
		shown := totalRows
		if shown > rankedListCap {
			shown = rankedListCap
		}
		bullets := stringifyRows(rows, shown)
		lines := make([]string, 0, shown+2)
		lines = append(lines, fmt.Sprintf("Top %d (%s → %s):", shown, columns[0], columns[1]))
		for _, row := range bullets {
			lines = append(lines, fmt.Sprintf("- %s : %s", row[0], row[1]))
		}
		if totalRows > shown {
			lines = append(lines, fmt.Sprintf("(affichage tronqué: %d/%d)", shown, totalRows))
		}
		return Answer{
			Text:            strings.Join(lines, "\n"),
			Table:           renderGrid(columns, preview, opts.MaxColWidth),
			PreviewRows:     preview,
			PreviewRowCount: len(preview),
			TotalRows:       totalRows,
		}
	}

	text := fmt.Sprintf("Résultats: %d lignes. Aperçu: %d lignes.", totalRows, len(preview))
	if totalRows > len(preview) {
		text += fmt.Sprintf(" (tronqué à %d)", len(preview))
	}
	return Answer{
		Text:            text,
		Table:           renderGrid(columns, preview, opts.MaxColWidth),
		PreviewRows:     preview,
		PreviewRowCount: len(preview),
		TotalRows:       totalRows,
	}
}

func stringifyRows(rows [][]any, limit int) [][]string {
	if limit > len(rows) {
		limit = len(rows)
	}
	out := make([][]string, 0, limit)
	for _, row := range rows[:limit] {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = displayString(value)
		}
		out = append(out, cells)
	}
	return out
}

// displayString converts a cell value: nil renders empty, floats render with
// four decimals and trailing zeros stripped, everything else renders in its
// natural string form.
func displayString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(typed)
	case float32:
		return formatFloat(float64(typed))
	default:
		return fmt.Sprint(typed)
	}
}

func formatFloat(value float64) string {
	if math.IsNaN(value) {
		return "NaN"
	}
	s := fmt.Sprintf("%.4f", value)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// shorten collapses a cell onto one line and truncates it to maxLen runes,
// marking the cut with an ellipsis.
func shorten(s string, maxLen int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

// renderGrid draws a bordered table with every cell right-padded to the
// column's computed width, capped at maxColWidth. Output is stable for a
// given input, which the tests rely on.
func renderGrid(columns []string, rows [][]string, maxColWidth int) string {
	widths := make([]int, len(columns))
	for i, column := range columns {
		widths[i] = clamp(len([]rune(column)), maxColWidth)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := clamp(len([]rune(cell)), maxColWidth); w > widths[i] {
				widths[i] = w
			}
		}
	}

	separator := buildSeparator(widths)
	lines := make([]string, 0, len(rows)+4)
	lines = append(lines, separator, formatGridRow(columns, widths), separator)
	for _, row := range rows {
		lines = append(lines, formatGridRow(row, widths))
	}
	lines = append(lines, separator)
	return strings.Join(lines, "\n")
}

func formatGridRow(cells []string, widths []int) string {
	padded := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = shorten(cells[i], widths[i])
		}
		padded[i] = cell + strings.Repeat(" ", widths[i]-len([]rune(cell)))
	}
	return "| " + strings.Join(padded, " | ") + " |"
}

func buildSeparator(widths []int) string {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width)
	}
	return "+-" + strings.Join(parts, "-+-") + "-+"
}

func clamp(value, limit int) int {
	if value > limit {
		return limit
	}
	return value
}
