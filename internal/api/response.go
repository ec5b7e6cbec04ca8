package api

import (
	"github.com/bytedance/sonic"

	"github.com/askaquestion-genai/server/internal/agent/model"
	errx "github.com/askaquestion-genai/server/internal/core/error"
	logx "github.com/askaquestion-genai/server/pkg/logger"
)

type turnResponse struct {
	JSONData     model.FieldSet `json:"json_data"`
	AttemptCount int            `json:"attempt_count"`
	Conversation *string        `json:"conversation"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type transcriptResponse struct {
	SessionID string             `json:"session_id"`
	Turns     []model.TurnRecord `json:"turns"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func errorPayload(err error) (int, any) {
	return errx.StatusOf(err), errorResponse{Error: errx.MessageOf(err)}
}

// encode marshals a payload, falling back to the generic error body.
func encode(payload any) []byte {
	b, err := sonic.Marshal(payload)
	if err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
		b, _ = sonic.Marshal(errorResponse{Error: errx.SystemErrorMessage})
	}
	return b
}
