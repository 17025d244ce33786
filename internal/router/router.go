// Package router performs fast, stateless triage of a raw question before any
// model call happens. It never touches I/O.
package router

import (
	"strings"

	"github.com/queryguard/queryguard/internal/rules"
)

type Route string

const (
	RouteRefuse  Route = "REFUSE"
	RouteClarify Route = "CLARIFY"
	RouteData    Route = "DATA"
	RouteChat    Route = "CHAT"
)

// Decision is produced fresh per question and never persisted.
type Decision struct {
	Route              Route  `json:"route"`
	Reason             string `json:"reason"`
	ClarifyingQuestion string `json:"clarifying_question,omitempty"`
}

const (
	metricQuestion = "Which metric for 'top/best'? (total amount, #transactions, #dossiers, etc.)"
	timeQuestion   = "Which time period? (e.g. 2024, 2025 or specific dates)"
)

// Route classifies a question into one of four coarse routes. The ranking
// check runs before the entity check so that a "top X" question missing its
// metric or period is clarified without a generation call.
func RouteMessage(question string) Decision {
	q := strings.TrimSpace(question)
	if q == "" {
		return Decision{Route: RouteRefuse, Reason: "destructive_or_injection"}
	}

	if rules.RankingPattern.MatchString(q) {
		needMetric := !rules.MetricHints.MatchString(q)
		needTime := !rules.TimeHints.MatchString(q)
		if needMetric || needTime {
			missing := make([]string, 0, 2)
			parts := make([]string, 0, 2)
			if needMetric {
				missing = append(missing, "metric")
				parts = append(parts, metricQuestion)
			}
			if needTime {
				missing = append(missing, "time_range")
				parts = append(parts, timeQuestion)
			}
			return Decision{
				Route:              RouteClarify,
				Reason:             "ranking_missing_" + strings.Join(missing, "_"),
				ClarifyingQuestion: strings.Join(parts, " "),
			}
		}
	}

	if rules.DataEntityHints.MatchString(q) {
		return Decision{Route: RouteData, Reason: "mention_data_entities"}
	}
	return Decision{Route: RouteChat, Reason: "no_data_signals"}
}
