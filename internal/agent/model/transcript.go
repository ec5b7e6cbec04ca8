package model

import (
	"context"
	"time"
)

// TranscriptRepository stores the processed turns of a session.
type TranscriptRepository interface {
	// AppendTurn adds a turn record to the session transcript
	AppendTurn(ctx context.Context, sessionID string, record TurnRecord) error

	// LoadTurns retrieves every stored turn of a session, oldest first
	LoadTurns(ctx context.Context, sessionID string) ([]TurnRecord, error)

	// ClearTurns removes the transcript of a session
	ClearTurns(ctx context.Context, sessionID string) error
}

// TurnRecord is one processed turn as kept in the transcript.
type TurnRecord struct {
	Utterance     string    `json:"utterance"`
	Message       *string   `json:"message"`
	NeedsMoreInfo bool      `json:"needs_more_info"`
	Outcome       Outcome   `json:"outcome"`
	AttemptCount  int       `json:"attempt_count"`
	MaxAttempts   int       `json:"max_attempts"`
	Fields        FieldSet  `json:"fields"`
	CreatedAt     time.Time `json:"created_at"`
}
