package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/askaquestion-genai/server/internal/agent/conversations"
	"github.com/askaquestion-genai/server/internal/agent/graph"
	"github.com/askaquestion-genai/server/internal/agent/model"
	errx "github.com/askaquestion-genai/server/internal/core/error"
	logx "github.com/askaquestion-genai/server/pkg/logger"
	"github.com/askaquestion-genai/server/pkg/metrics"
)

const outcomeRejected = "rejected"

// Service adapts transport payloads to the turn runner. It is shared by the
// HTTP router and the lambda handler.
type Service struct {
	runner      graph.Runner
	transcripts *conversations.TranscriptManager
	metrics     *metrics.Metrics
}

// NewService wires the runner with the optional transcript manager and metrics.
func NewService(runner graph.Runner, transcripts *conversations.TranscriptManager, m *metrics.Metrics) *Service {
	return &Service{runner: runner, transcripts: transcripts, metrics: m}
}

// HandleTurn processes one raw request body and returns the status and payload
// to send back.
func (s *Service) HandleTurn(ctx context.Context, body []byte) (status int, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().
				Str("component", "service").
				Str("stack", string(debug.Stack())).
				Msgf("panic recovered: %v", r)
			s.metrics.ObserveTurn(outcomeRejected)
			status, payload = errorPayload(errx.Internal(fmt.Errorf("panic: %v", r)))
		}
	}()

	req, err := DecodeTurnRequest(body)
	if err != nil {
		return s.reject(req, err)
	}

	res, err := s.runner.Process(ctx, req)
	if err != nil {
		return s.reject(req, err)
	}

	s.metrics.ObserveTurn(string(res.Outcome))
	logx.Info().
		Str("session_id", req.SessionID).
		Str("outcome", string(res.Outcome)).
		Int("attempt_count", res.AttemptCount).
		Int("max_attempts", req.Context.MaxAttempts).
		Bool("needs_more_info", res.NeedsMoreInfo).
		Strs("missing_fields", res.Missing).
		Float64("cost_usd", res.CostUSD).
		Msg("Turn processed")

	s.recordTurn(ctx, req, res)

	status = http.StatusOK
	if res.NeedsMoreInfo {
		status = http.StatusAccepted
	}
	return status, turnResponse{
		JSONData:     res.Fields,
		AttemptCount: res.AttemptCount,
		Conversation: res.Message,
	}
}

func (s *Service) reject(req model.TurnRequest, err error) (int, any) {
	status, payload := errorPayload(err)
	ev := logx.Warn()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		ev = logx.Error()
	}
	ev.Err(err).Str("session_id", req.SessionID).Int("status", status).Msg("Turn rejected")
	s.metrics.ObserveTurn(outcomeRejected)
	return status, payload
}

// recordTurn appends the turn to the transcript when the caller sent a
// session id. Failures are logged and never change the response.
func (s *Service) recordTurn(ctx context.Context, req model.TurnRequest, res *model.TurnResult) {
	if s.transcripts == nil || req.SessionID == "" {
		return
	}
	if err := s.transcripts.RecordTurn(ctx, req, res); err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Msg("Failed to record turn")
	}
}

// HandleTranscript returns the recent turns of a session.
func (s *Service) HandleTranscript(ctx context.Context, sessionID string) (int, any) {
	if s.transcripts == nil {
		return http.StatusNotFound, errorResponse{Error: "transcripts are not enabled"}
	}
	turns, err := s.transcripts.RecentTurns(ctx, sessionID)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to load transcript")
		return errorPayload(err)
	}
	return http.StatusOK, transcriptResponse{SessionID: sessionID, Turns: turns}
}

// HandleClearTranscript deletes the transcript of a session.
func (s *Service) HandleClearTranscript(ctx context.Context, sessionID string) (int, any) {
	if s.transcripts == nil {
		return http.StatusNotFound, errorResponse{Error: "transcripts are not enabled"}
	}
	if err := s.transcripts.Clear(ctx, sessionID); err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to clear transcript")
		return errorPayload(err)
	}
	return http.StatusNoContent, nil
}
