// Package nl2sql turns an approved natural-language question into SQL text.
// The generator is an opaque, untrusted collaborator: its output is cleaned
// here and re-validated by the safety package before it may execute.
package nl2sql

import "context"

type Generator interface {
	Generate(ctx context.Context, question, schemaText string) (string, error)
}
