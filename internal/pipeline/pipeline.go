// Package pipeline chains the guarded stages: router, gatekeeper, SQL
// generation, safety validation, read-only execution and result
// interpretation. Each stage can short-circuit with a structured outcome;
// only a fully-approved statement reaches a backend. The pipeline holds no
// cross-request state and is safe for concurrent use.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/queryguard/queryguard/internal/executor"
	"github.com/queryguard/queryguard/internal/format"
	"github.com/queryguard/queryguard/internal/gate"
	"github.com/queryguard/queryguard/internal/nl2sql"
	"github.com/queryguard/queryguard/internal/observability"
	"github.com/queryguard/queryguard/internal/router"
	"github.com/queryguard/queryguard/internal/safety"
	"github.com/queryguard/queryguard/internal/source"
)

const (
	StageRouter    = "router"
	StageGate      = "gatekeeper"
	StageValidator = "sql_validator"
	StageExecution = "execution"
	StageDone      = "done"
)

// Outcome is the single boundary a front end may depend on. Exactly one of
// the failure fields or the result fields is populated, according to Stage.
type Outcome struct {
	OK     bool   `json:"ok"`
	Stage  string `json:"stage"`
	Status string `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`

	Message             string   `json:"message,omitempty"`
	Notes               string   `json:"notes,omitempty"`
	ClarifyingQuestions []string `json:"clarifying_questions,omitempty"`
	MissingSlots        []string `json:"missing_slots,omitempty"`
	Error               string   `json:"error,omitempty"`

	SQL             string        `json:"sql,omitempty"`
	Columns         []string      `json:"columns,omitempty"`
	Rows            [][]any       `json:"rows,omitempty"`
	RowCount        int           `json:"row_count,omitempty"`
	AnswerText      string        `json:"answer_text,omitempty"`
	AnswerTable     string        `json:"answer_table,omitempty"`
	PreviewRows     [][]string    `json:"preview_rows,omitempty"`
	PreviewRowCount int           `json:"preview_row_count,omitempty"`
	TotalRows       int           `json:"total_rows,omitempty"`
	Chart           *format.Chart `json:"chart,omitempty"`
}

type Pipeline struct {
	Source    source.Source
	Generator nl2sql.Generator
	Gate      *gate.Gatekeeper
	Logger    *slog.Logger

	RowCap         int
	FormatOptions  format.Options
	ChartMaxPoints int
}

// Run executes the full guarded chain for one question. Every failure is a
// structured outcome; Run never panics and never retries a stage.
func (p *Pipeline) Run(ctx context.Context, question string) Outcome {
	outcome := p.run(ctx, question)
	observability.ObservePipelineOutcome(outcome.Stage, outcome.OK)
	return outcome
}

func (p *Pipeline) run(ctx context.Context, question string) Outcome {
	decision := router.RouteMessage(question)
	observability.ObserveQuestion(string(decision.Route))

	switch decision.Route {
	case router.RouteRefuse:
		return Outcome{
			OK:      false,
			Stage:   StageRouter,
			Status:  string(decision.Route),
			Reason:  decision.Reason,
			Message: "Request refused by safety policy.",
		}
	case router.RouteClarify:
		return Outcome{
			OK:                  false,
			Stage:               StageRouter,
			Status:              string(decision.Route),
			Reason:              decision.Reason,
			Message:             "Need clarification before querying the database.",
			ClarifyingQuestions: []string{decision.ClarifyingQuestion},
		}
	case router.RouteChat:
		return Outcome{
			OK:      false,
			Stage:   StageRouter,
			Status:  string(decision.Route),
			Reason:  decision.Reason,
			Message: "The question does not reference the dataset; answer it conversationally.",
		}
	}

	gatekeeper := p.Gate
	if gatekeeper == nil {
		gatekeeper = gate.New(nil)
	}
	verdict := gatekeeper.Evaluate(ctx, question)
	switch verdict.Status {
	case gate.StatusOutOfScope:
		return Outcome{
			OK:      false,
			Stage:   StageGate,
			Status:  string(verdict.Status),
			Reason:  verdict.ParsedIntent,
			Message: "Request refused by safety policy.",
			Notes:   verdict.Notes,
		}
	case gate.StatusNeedsClarification:
		return Outcome{
			OK:                  false,
			Stage:               StageGate,
			Status:              string(verdict.Status),
			Message:             "Need clarification before querying the database.",
			ClarifyingQuestions: verdict.ClarifyingQuestions,
			MissingSlots:        verdict.MissingSlots,
			Notes:               verdict.Notes,
		}
	}

	if p.Source == nil {
		return Outcome{OK: false, Stage: StageExecution, Error: "no data source configured"}
	}
	if p.Generator == nil {
		return Outcome{OK: false, Stage: StageExecution, Error: "no SQL generator configured"}
	}

	schemaText, err := p.Source.SchemaText(ctx)
	if err != nil {
		return Outcome{OK: false, Stage: StageExecution, Error: fmt.Sprintf("schema introspection error: %v", err)}
	}

	sqlText, err := p.Generator.Generate(ctx, question, schemaText)
	if err != nil {
		return Outcome{OK: false, Stage: StageExecution, Error: fmt.Sprintf("SQL generation error: %v", err)}
	}

	if verdict := safety.Validate(sqlText); !verdict.OK {
		observability.ObserveBlockedSQL(verdict.ReasonClass())
		if p.Logger != nil {
			p.Logger.WarnContext(ctx, "generated SQL blocked",
				slog.String("reason", verdict.Reason),
			)
		}
		return Outcome{
			OK:      false,
			Stage:   StageValidator,
			Status:  "BLOCKED",
			SQL:     sqlText,
			Reason:  verdict.Reason,
			Message: "Generated SQL blocked by validator.",
		}
	}

	result := executor.Execute(ctx, p.Source, sqlText, p.RowCap)
	if !result.OK {
		return Outcome{OK: false, Stage: StageExecution, SQL: sqlText, Error: result.Error}
	}

	answer := format.Format(result.Columns, result.Rows, p.FormatOptions)
	chart := format.InferChart(question, result.Columns, result.Rows, p.ChartMaxPoints)

	if p.Logger != nil {
		p.Logger.InfoContext(ctx, "pipeline answered",
			slog.Int("row_count", len(result.Rows)),
			slog.Bool("chart", chart != nil),
		)
	}

	return Outcome{
		OK:              true,
		Stage:           StageDone,
		SQL:             sqlText,
		Columns:         result.Columns,
		Rows:            result.Rows,
		RowCount:        len(result.Rows),
		AnswerText:      answer.Text,
		AnswerTable:     answer.Table,
		PreviewRows:     answer.PreviewRows,
		PreviewRowCount: answer.PreviewRowCount,
		TotalRows:       answer.TotalRows,
		Chart:           chart,
	}
}
