package model

import (
	"strings"

	errx "github.com/askaquestion-genai/server/internal/core/error"
)

// TurnContext carries the progress counters and the persona used to word replies.
type TurnContext struct {
	AttemptCount int
	MaxAttempts  int
	UserRole     string
	Task         string
	Job          string
}

// TurnRequest is one conversational turn as supplied by the caller.
type TurnRequest struct {
	SessionID string
	Fields    FieldSet
	Utterance string
	Context   TurnContext
}

// Validate checks the request before any model call is made.
func (r TurnRequest) Validate() error {
	if r.Fields.Len() == 0 {
		return errx.EmptySchema()
	}
	required := [...]struct{ name, value string }{
		{"user_query", r.Utterance},
		{"user_role", r.Context.UserRole},
		{"task", r.Context.Task},
		{"job", r.Context.Job},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return errx.Validation(f.name + " is empty")
		}
	}
	if r.Context.MaxAttempts <= 0 {
		return errx.Validation("max_attempts must be positive")
	}
	if r.Context.AttemptCount < 0 {
		return errx.Validation("attempt_count must not be negative")
	}
	if r.Context.AttemptCount >= r.Context.MaxAttempts {
		return errx.AttemptsExhausted(r.Context.AttemptCount, r.Context.MaxAttempts)
	}
	return nil
}

// Outcome classifies how a processed turn ended.
type Outcome string

const (
	// OutcomeComplete means every field is filled.
	OutcomeComplete Outcome = "complete"
	// OutcomeCollecting means fields are still missing and attempts remain.
	OutcomeCollecting Outcome = "collecting"
	// OutcomeExhausted means fields are missing and this turn used the last attempt.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeDegraded means a model call failed and the caller should ask again.
	OutcomeDegraded Outcome = "degraded"
)

// TurnResult is what a processed turn hands back to the caller.
type TurnResult struct {
	// Message is nil when the turn degraded.
	Message       *string
	NeedsMoreInfo bool
	Fields        FieldSet
	AttemptCount  int
	Outcome       Outcome
	Missing       []string
	// CostUSD sums the priced token usage of the model calls made for the turn.
	CostUSD float64
}
