package format

import (
	"strings"

	"github.com/queryguard/queryguard/internal/rules"
)

// DefaultMaxChartPoints bounds how many rows feed the chart payload. This is
// a display approximation, not a data-integrity operation.
const DefaultMaxChartPoints = 50

const (
	ChartPie     = "pie"
	ChartLine    = "line"
	ChartScatter = "scatter"
	ChartBar     = "bar"
)

// Chart is a renderer-agnostic specification in the plotly trace/layout
// shape the front end consumes.
type Chart struct {
	Type   string  `json:"type"`
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type   string `json:"type"`
	Mode   string `json:"mode,omitempty"`
	Name   string `json:"name,omitempty"`
	X      []any  `json:"x,omitempty"`
	Y      []any  `json:"y,omitempty"`
	Labels []any  `json:"labels,omitempty"`
	Values []any  `json:"values,omitempty"`
}

type Layout struct {
	Title string `json:"title,omitempty"`
	XAxis *Axis  `json:"xaxis,omitempty"`
	YAxis *Axis  `json:"yaxis,omitempty"`
}

type Axis struct {
	Title string `json:"title,omitempty"`
}

// InferChart decides whether and how a two-column numeric result can be
// visualized. It returns nil whenever the shape does not support a chart or
// a restricted column is involved.
func InferChart(question string, columns []string, rows [][]any, maxPoints int) *Chart {
	if len(columns) != 2 || len(rows) == 0 {
		return nil
	}
	for _, column := range columns {
		if rules.IsPIIColumn(column) {
			return nil
		}
	}
	if maxPoints <= 0 {
		maxPoints = DefaultMaxChartPoints
	}

	if _, ok := toFloat(rows[0][1]); !ok {
		return nil
	}

	limit := len(rows)
	if limit > maxPoints {
		limit = maxPoints
	}
	xs := make([]any, 0, limit)
	ys := make([]any, 0, limit)
	for _, row := range rows[:limit] {
		xs = append(xs, row[0])
		ys = append(ys, row[1])
	}

	xCol, yCol := columns[0], columns[1]

	if rules.PieHints.MatchString(question) && len(xs) <= 10 && allNonNegative(ys) {
		return &Chart{
			Type:   ChartPie,
			Data:   []Trace{{Type: "pie", Labels: xs, Values: ys}},
			Layout: Layout{Title: "Share of " + yCol + " by " + xCol},
		}
	}

	if looksLikeDate(xCol, xs[0]) {
		return &Chart{
			Type: ChartLine,
			Data: []Trace{{Type: "scatter", Mode: "lines+markers", Name: yCol, X: xs, Y: ys}},
			Layout: Layout{
				Title: yCol + " over time",
				XAxis: &Axis{Title: xCol},
				YAxis: &Axis{Title: yCol},
			},
		}
	}

	if _, ok := toFloat(xs[0]); ok {
		return &Chart{
			Type: ChartScatter,
			Data: []Trace{{Type: "scatter", Mode: "markers", Name: yCol, X: xs, Y: ys}},
			Layout: Layout{
				Title: yCol + " vs " + xCol,
				XAxis: &Axis{Title: xCol},
				YAxis: &Axis{Title: yCol},
			},
		}
	}

	return &Chart{
		Type: ChartBar,
		Data: []Trace{{Type: "bar", Name: yCol, X: xs, Y: ys}},
		Layout: Layout{
			Title: yCol + " by " + xCol,
			XAxis: &Axis{Title: xCol},
			YAxis: &Axis{Title: yCol},
		},
	}
}

func looksLikeDate(column string, sample any) bool {
	if rules.DateNameHint.MatchString(column) {
		return true
	}
	if s, ok := sample.(string); ok {
		s = strings.TrimSpace(s)
		return rules.ISODate.MatchString(s) || rules.ISOMonth.MatchString(s)
	}
	return false
}

func allNonNegative(values []any) bool {
	for _, value := range values {
		if value == nil {
			continue
		}
		f, ok := toFloat(value)
		if !ok || f < 0 {
			return false
		}
	}
	return true
}

// toFloat reports whether value is numeric; bools do not count.
func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}
