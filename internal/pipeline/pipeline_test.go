package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/queryguard/queryguard/internal/gate"
)

type fakeSource struct {
	schema  string
	columns []string
	rows    [][]any
	err     error
}

func (f *fakeSource) Kind() string { return "fake" }

func (f *fakeSource) SchemaText(_ context.Context) (string, error) {
	return f.schema, nil
}

func (f *fakeSource) Query(_ context.Context, _ string, _ int) ([]string, [][]any, error) {
	return f.columns, f.rows, f.err
}

type fakeGenerator struct {
	sql       string
	err       error
	gotSchema string
}

func (f *fakeGenerator) Generate(_ context.Context, _, schemaText string) (string, error) {
	f.gotSchema = schemaText
	return f.sql, f.err
}

func newPipeline(src *fakeSource, gen *fakeGenerator) *Pipeline {
	return &Pipeline{
		Source:    src,
		Generator: gen,
		Gate:      gate.New(nil),
	}
}

func TestRunRefusesEmptyQuestion(t *testing.T) {
	outcome := newPipeline(&fakeSource{}, &fakeGenerator{}).Run(context.Background(), "   ")
	if outcome.OK || outcome.Stage != StageRouter {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Status != "REFUSE" {
		t.Fatalf("Status = %q", outcome.Status)
	}
}

func TestRunClarifiesIncompleteRanking(t *testing.T) {
	outcome := newPipeline(&fakeSource{}, &fakeGenerator{}).Run(context.Background(), "Who are the top clients?")
	if outcome.OK || outcome.Stage != StageRouter {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Status != "CLARIFY" || len(outcome.ClarifyingQuestions) == 0 {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestRunChatShortCircuit(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT 1"}
	outcome := newPipeline(&fakeSource{}, gen).Run(context.Background(), "Hello there, how is it going?")
	if outcome.OK || outcome.Stage != StageRouter || outcome.Status != "CHAT" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if gen.gotSchema != "" {
		t.Fatal("generator must not run for chat questions")
	}
}

func TestRunGateRefusesDestructiveRequest(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT 1"}
	outcome := newPipeline(&fakeSource{}, gen).Run(context.Background(), "Delete all transactions from 2024.")
	if outcome.OK {
		t.Fatal("destructive request must fail")
	}
	if outcome.Stage != StageGate {
		t.Fatalf("Stage = %q, want %q", outcome.Stage, StageGate)
	}
	if outcome.Reason != "unsafe_sql_or_injection" {
		t.Fatalf("Reason = %q", outcome.Reason)
	}
	if gen.gotSchema != "" {
		t.Fatal("generator must not run for refused questions")
	}
}

func TestRunGateRefusesPIIRequest(t *testing.T) {
	outcome := newPipeline(&fakeSource{}, &fakeGenerator{}).Run(context.Background(), "Show nom and prenom for all clients.")
	if outcome.OK || outcome.Stage != StageGate {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Reason != "pii_request" {
		t.Fatalf("Reason = %q", outcome.Reason)
	}
}

func TestRunBlocksUnsafeGeneratedSQL(t *testing.T) {
	src := &fakeSource{schema: "TABLE clients(id INTEGER)"}
	gen := &fakeGenerator{sql: "DROP TABLE clients"}
	outcome := newPipeline(src, gen).Run(context.Background(), "How many clients are there?")
	if outcome.OK {
		t.Fatal("unsafe SQL must be blocked")
	}
	if outcome.Stage != StageValidator || outcome.Status != "BLOCKED" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.SQL != "DROP TABLE clients" {
		t.Fatalf("SQL = %q", outcome.SQL)
	}
}

func TestRunSurfacesGenerationError(t *testing.T) {
	src := &fakeSource{schema: "TABLE clients(id INTEGER)"}
	gen := &fakeGenerator{err: errors.New("model unreachable")}
	outcome := newPipeline(src, gen).Run(context.Background(), "How many clients are there?")
	if outcome.OK || outcome.Stage != StageExecution {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.Contains(outcome.Error, "SQL generation error") {
		t.Fatalf("Error = %q", outcome.Error)
	}
}

func TestRunSurfacesBackendError(t *testing.T) {
	src := &fakeSource{
		schema: "TABLE clients(id INTEGER)",
		err:    errors.New("no such table: stats"),
	}
	gen := &fakeGenerator{sql: "SELECT total FROM stats"}
	outcome := newPipeline(src, gen).Run(context.Background(), "How many clients are there?")
	if outcome.OK || outcome.Stage != StageExecution {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.Contains(outcome.Error, "SQL execution error") {
		t.Fatalf("Error = %q", outcome.Error)
	}
}

func TestRunHappyPath(t *testing.T) {
	src := &fakeSource{
		schema:  "TABLE transactions(commune TEXT, montant REAL)",
		columns: []string{"commune", "total"},
		rows:    [][]any{{"Paris", 120.0}, {"Lyon", 80.0}},
	}
	gen := &fakeGenerator{sql: "SELECT commune, SUM(montant) AS total FROM transactions GROUP BY commune"}
	outcome := newPipeline(src, gen).Run(context.Background(), "Total montant per commune for transactions")
	if !outcome.OK {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Stage != StageDone {
		t.Fatalf("Stage = %q", outcome.Stage)
	}
	if gen.gotSchema != src.schema {
		t.Fatalf("schema passed to generator = %q", gen.gotSchema)
	}
	if outcome.RowCount != 2 || outcome.TotalRows != 2 {
		t.Fatalf("counts = %d/%d", outcome.RowCount, outcome.TotalRows)
	}
	if !strings.HasPrefix(outcome.AnswerText, "Top 2 (commune → total):") {
		t.Fatalf("AnswerText = %q", outcome.AnswerText)
	}
	if outcome.Chart == nil || outcome.Chart.Type != "bar" {
		t.Fatalf("Chart = %+v", outcome.Chart)
	}
}

func TestRunWithoutGeneratorFailsCleanly(t *testing.T) {
	pipe := &Pipeline{Source: &fakeSource{schema: "x"}, Gate: gate.New(nil)}
	outcome := pipe.Run(context.Background(), "How many clients are there?")
	if outcome.OK || outcome.Stage != StageExecution {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Error != "no SQL generator configured" {
		t.Fatalf("Error = %q", outcome.Error)
	}
}
