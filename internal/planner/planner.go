// File: internal/planner/planner.go
//
// Package planner abstracts the LLM backend that decides the next input
// command given the current screen state.
package planner

import "context"

// Request carries one planning turn.
type Request struct {
	SystemPrompt string
	UserPrompt   string
}

// Planner produces the raw model response for one decision turn. The response
// is expected to follow the <think></think> protocol; interpreting it is the
// caller's job.
type Planner interface {
	NextAction(ctx context.Context, req Request) (string, error)
}
