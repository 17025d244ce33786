// Package gate is the second, stateful safety stage. It blocks unsafe or
// out-of-scope input before any generation happens, and verifies that every
// slot the detected intent requires is filled before the pipeline may
// proceed to SQL generation.
package gate

import (
	"context"
	"sort"
	"strings"

	"github.com/queryguard/queryguard/internal/rules"
)

type Status string

const (
	StatusReadyForSQL        Status = "READY_FOR_SQL"
	StatusNeedsClarification Status = "NEEDS_CLARIFICATION"
	StatusOutOfScope         Status = "OUT_OF_SCOPE"
)

type TimeRangeKind string

const (
	TimeRangeYear      TimeRangeKind = "year"
	TimeRangeDateRange TimeRangeKind = "date_range"
	TimeRangeRelative  TimeRangeKind = "relative"
)

type TimeRange struct {
	Kind  TimeRangeKind `json:"kind"`
	Value string        `json:"value"`
}

// Result is the gate's verdict on one question. A NeedsClarification result
// always carries at least one missing slot; an OutOfScope result must never
// reach SQL generation.
type Result struct {
	Status              Status         `json:"status"`
	ParsedIntent        string         `json:"parsed_intent,omitempty"`
	Metric              string         `json:"metric,omitempty"`
	Dimensions          []string       `json:"dimensions,omitempty"`
	TimeRange           *TimeRange     `json:"time_range,omitempty"`
	Filters             map[string]any `json:"filters,omitempty"`
	MissingSlots        []string       `json:"missing_slots,omitempty"`
	ClarifyingQuestions []string       `json:"clarifying_questions,omitempty"`
	Notes               string         `json:"notes,omitempty"`
}

// RequiredSlotsByIntent maps an extracted intent to the slots it needs. The
// table is static and never mutated at runtime.
var RequiredSlotsByIntent = map[string][]string{
	"aggregation": {"metric", "time_range"},
	"listing":     {"time_range"},
	"comparison":  {"time_range"},
}

// DefaultFilters are injected into a ready result that does not already
// constrain transaction status.
var DefaultFilters = map[string]any{"transaction_status": "approved"}

const maxClarifyingQuestions = 3

const (
	timeRangeClarification = "Which period do you want? (a) all of 2025 (b) a certain period (give dates)"
	metricClarification    = "Which metric do you want?"
	genericClarification   = "Can you rephrase the question with more detail? (metric + period + dimension)"
)

// SlotExtractor is the external intent/slot extraction capability. It must
// return a well-formed Result or an error; it is never assumed reliable.
type SlotExtractor interface {
	Extract(ctx context.Context, question string) (Result, error)
}

type Gatekeeper struct {
	extractor SlotExtractor
}

// New builds a gatekeeper. A nil extractor disables external extraction:
// questions that pass both screens are approved with intent "sql_query".
func New(extractor SlotExtractor) *Gatekeeper {
	return &Gatekeeper{extractor: extractor}
}

// Evaluate applies, in order: the unsafe-input screen, the PII screen, and
// the slot-completion check on the extractor's output. Extraction failures
// fail closed as NeedsClarification rather than silently approving.
func (g *Gatekeeper) Evaluate(ctx context.Context, question string) Result {
	q := strings.TrimSpace(question)

	if isUnsafeUserInput(q) {
		return Result{
			Status:       StatusOutOfScope,
			ParsedIntent: "unsafe_sql_or_injection",
			Notes:        "User input contains SQL, injection markers or destructive intent. Refused before SQL generation.",
		}
	}
	if col := rules.FindPIIReference(q); col != "" {
		return Result{
			Status:       StatusOutOfScope,
			ParsedIntent: "pii_request",
			Notes:        "PII request detected (" + col + "). Refused before SQL generation.",
		}
	}

	if g.extractor == nil {
		return Result{
			Status:       StatusReadyForSQL,
			ParsedIntent: "sql_query",
			Notes:        "Allowed to generate SQL.",
		}
	}

	extracted, err := g.extractor.Extract(ctx, q)
	if err != nil {
		extracted = failClosedResult()
	}
	return ApplyRuleChecks(extracted)
}

// ApplyRuleChecks enforces slot completion on an extracted result. Missing
// slots are the union of what the extractor reported and what the intent's
// static requirement derives, in stable sorted order; a clarification verdict
// never carries an empty slot list. Clarifying questions are synthesized only
// when the extractor supplied none, time range first.
func ApplyRuleChecks(res Result) Result {
	required := RequiredSlotsByIntent[res.ParsedIntent]

	missing := make([]string, 0, len(required))
	for _, slot := range required {
		if slotEmpty(res, slot) {
			missing = append(missing, slot)
		}
	}

	if len(missing) > 0 || len(res.MissingSlots) > 0 || res.Status == StatusNeedsClarification {
		res.Status = StatusNeedsClarification
		res.MissingSlots = unionSorted(res.MissingSlots, missing)
		if len(res.MissingSlots) == 0 {
			// The extractor asked for clarification without naming a slot.
			res.MissingSlots = []string{"parsed_intent"}
		}

		if len(res.ClarifyingQuestions) == 0 {
			qs := make([]string, 0, 2)
			if contains(res.MissingSlots, "time_range") {
				qs = append(qs, timeRangeClarification)
			}
			if contains(res.MissingSlots, "metric") {
				qs = append(qs, metricClarification)
			}
			if len(qs) == 0 {
				qs = append(qs, genericClarification)
			}
			res.ClarifyingQuestions = qs
		}
		if len(res.ClarifyingQuestions) > maxClarifyingQuestions {
			res.ClarifyingQuestions = res.ClarifyingQuestions[:maxClarifyingQuestions]
		}
		return res
	}

	if res.Status == StatusReadyForSQL {
		res.Filters = withDefaultFilters(res.Filters)
	}
	return res
}

func isUnsafeUserInput(q string) bool {
	if rules.SQLLikeStart.MatchString(q) {
		return true
	}
	if rules.InjectionMarkers.MatchString(q) {
		return true
	}
	return rules.ContainsDestructiveVerb(q)
}

func failClosedResult() Result {
	return Result{
		Status:              StatusNeedsClarification,
		MissingSlots:        []string{"parsed_intent"},
		ClarifyingQuestions: []string{genericClarification},
		Notes:               "Slot extractor returned unusable output.",
	}
}

func slotEmpty(res Result, slot string) bool {
	switch slot {
	case "metric":
		return strings.TrimSpace(res.Metric) == ""
	case "time_range":
		return res.TimeRange == nil || strings.TrimSpace(res.TimeRange.Value) == ""
	case "dimensions":
		return len(res.Dimensions) == 0
	case "parsed_intent":
		return strings.TrimSpace(res.ParsedIntent) == ""
	default:
		return false
	}
}

func unionSorted(a, b []string) []string {
	seen := map[string]struct{}{}
	merged := make([]string, 0, len(a)+len(b))
	for _, value := range append(append([]string{}, a...), b...) {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		merged = append(merged, value)
	}
	sort.Strings(merged)
	return merged
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func withDefaultFilters(filters map[string]any) map[string]any {
	if filters == nil {
		filters = map[string]any{}
	}
	for key, value := range DefaultFilters {
		if _, ok := filters[key]; !ok {
			filters[key] = value
		}
	}
	return filters
}
