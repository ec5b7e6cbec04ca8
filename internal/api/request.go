package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/askaquestion-genai/server/internal/agent/model"
	errx "github.com/askaquestion-genai/server/internal/core/error"
)

// turnRequestBody is the wire shape of a turn.
type turnRequestBody struct {
	Schema       json.RawMessage `json:"schema"`
	UserQuery    string          `json:"user_query"`
	MaxAttempts  flexInt         `json:"max_attempts"`
	UserRole     string          `json:"user_role"`
	Task         string          `json:"task"`
	Job          string          `json:"job"`
	AttemptCount flexInt         `json:"attempt_count"`
	SessionID    string          `json:"session_id"`
}

// flexInt accepts a JSON number or a numeric string. Set is false when the
// value is absent, null or an empty string.
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = flexInt{}
		return nil
	}
	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
		if text == "" {
			*f = flexInt{}
			return nil
		}
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", text)
	}
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return fmt.Errorf("not an integer: %q", text)
	}
	*f = flexInt{Value: int(n), Set: true}
	return nil
}

// maxBodyUnwrap bounds how many times a JSON-string-encoded body is unwrapped.
const maxBodyUnwrap = 2

// DecodeTurnRequest parses a request body into a TurnRequest. The body may be
// a JSON object or a JSON string holding one. An absent or empty schema is
// reported before any other problem.
func DecodeTurnRequest(body []byte) (model.TurnRequest, error) {
	body = bytes.TrimSpace(body)
	for i := 0; i < maxBodyUnwrap && len(body) > 0 && body[0] == '"'; i++ {
		var inner string
		if err := sonic.Unmarshal(body, &inner); err != nil {
			return model.TurnRequest{}, errx.Validation("body is not valid JSON")
		}
		body = bytes.TrimSpace([]byte(inner))
	}
	if len(body) == 0 {
		return model.TurnRequest{}, errx.EmptySchema()
	}

	// schema alone first, so a bad sibling field never hides an empty schema
	var head struct {
		Schema json.RawMessage `json:"schema"`
	}
	if err := sonic.Unmarshal(body, &head); err != nil {
		return model.TurnRequest{}, errx.Validation(fmt.Sprintf("decode body: %v", err))
	}
	if isEmptySchema(head.Schema) {
		return model.TurnRequest{}, errx.EmptySchema()
	}

	var raw turnRequestBody
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return model.TurnRequest{}, errx.Validation(fmt.Sprintf("decode body: %v", err))
	}
	var fields model.FieldSet
	if err := fields.UnmarshalJSON(raw.Schema); err != nil {
		return model.TurnRequest{}, errx.Validation(fmt.Sprintf("schema: %v", err))
	}
	if fields.Len() == 0 {
		return model.TurnRequest{}, errx.EmptySchema()
	}

	if !raw.MaxAttempts.Set {
		return model.TurnRequest{}, errx.Validation("max_attempts is missing")
	}
	if !raw.AttemptCount.Set {
		return model.TurnRequest{}, errx.Validation("attempt_count is missing")
	}

	return model.TurnRequest{
		SessionID: strings.TrimSpace(raw.SessionID),
		Fields:    fields,
		Utterance: raw.UserQuery,
		Context: model.TurnContext{
			AttemptCount: raw.AttemptCount.Value,
			MaxAttempts:  raw.MaxAttempts.Value,
			UserRole:     raw.UserRole,
			Task:         raw.Task,
			Job:          raw.Job,
		},
	}, nil
}

func isEmptySchema(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", `""`, "{}", "false", "0", "[]":
		return true
	}
	return false
}
