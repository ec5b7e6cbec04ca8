package conversations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/askaquestion-genai/server/internal/agent/model"
	errx "github.com/askaquestion-genai/server/internal/core/error"
)

// TranscriptManager records processed turns and serves recent history.
type TranscriptManager struct {
	transcriptRepo model.TranscriptRepository
	maxTurns       int
	now            func() time.Time
}

func NewTranscriptManager(transcriptRepo model.TranscriptRepository, config model.TranscriptConfig) *TranscriptManager {
	return &TranscriptManager{
		transcriptRepo: transcriptRepo,
		maxTurns:       config.MaxTurns,
		now:            time.Now,
	}
}

// RecordTurn appends the outcome of a processed turn to the session transcript.
func (m *TranscriptManager) RecordTurn(ctx context.Context, req model.TurnRequest, res *model.TurnResult) error {
	if err := validateSessionID(req.SessionID); err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("turn result is nil")
	}
	return m.transcriptRepo.AppendTurn(ctx, req.SessionID, model.TurnRecord{
		Utterance:     req.Utterance,
		Message:       res.Message,
		NeedsMoreInfo: res.NeedsMoreInfo,
		Outcome:       res.Outcome,
		AttemptCount:  res.AttemptCount,
		MaxAttempts:   req.Context.MaxAttempts,
		Fields:        res.Fields,
		CreatedAt:     m.now().UTC(),
	})
}

// RecentTurns returns at most the configured number of most recent turns, oldest first.
func (m *TranscriptManager) RecentTurns(ctx context.Context, sessionID string) ([]model.TurnRecord, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}
	turns, err := m.transcriptRepo.LoadTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return trimTail(turns, m.maxTurns), nil
}

// Clear removes the transcript of a session.
func (m *TranscriptManager) Clear(ctx context.Context, sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	return m.transcriptRepo.ClearTurns(ctx, sessionID)
}

// ====================== Helper function ======================
const maxSessionIDLen = 128

func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errx.Validation("session id is empty")
	}
	if len(sessionID) > maxSessionIDLen {
		return errx.Validation(fmt.Sprintf("session id longer than %d characters", maxSessionIDLen))
	}
	if strings.ContainsAny(sessionID, " \t\r\n") {
		return errx.Validation("session id contains whitespace")
	}
	return nil
}

func trimTail(turns []model.TurnRecord, maxTurns int) []model.TurnRecord {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		result := make([]model.TurnRecord, len(turns))
		copy(result, turns)
		return result
	}
	source := turns[len(turns)-maxTurns:]
	result := make([]model.TurnRecord, len(source))
	copy(result, source)
	return result
}
