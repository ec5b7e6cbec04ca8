package api

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/askaquestion-genai/server/internal/core/error"
)

const validBody = `{
	"schema": {"name": null, "date": "None"},
	"user_query": "My name is John Smith",
	"max_attempts": 3,
	"user_role": "receptionist",
	"task": "book an appointment",
	"job": "clinic",
	"attempt_count": 0,
	"session_id": " s-1 "
}`

func TestDecodeTurnRequest(t *testing.T) {
	req, err := DecodeTurnRequest([]byte(validBody))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "date"}, req.Fields.Keys())
	v, ok := req.Fields.Get("date")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, "None", *v)
	assert.Equal(t, "My name is John Smith", req.Utterance)
	assert.Equal(t, 0, req.Context.AttemptCount)
	assert.Equal(t, 3, req.Context.MaxAttempts)
	assert.Equal(t, "receptionist", req.Context.UserRole)
	assert.Equal(t, "s-1", req.SessionID)
}

func TestDecodeTurnRequestDoubleEncoded(t *testing.T) {
	once := strconv.Quote(validBody)
	twice := strconv.Quote(once)

	for name, body := range map[string]string{"once": once, "twice": twice} {
		t.Run(name, func(t *testing.T) {
			req, err := DecodeTurnRequest([]byte(body))
			require.NoError(t, err)
			assert.Equal(t, []string{"name", "date"}, req.Fields.Keys())
		})
	}

	_, err := DecodeTurnRequest([]byte(strconv.Quote(twice)))
	assert.True(t, errors.Is(err, errx.ErrValidation))
}

func TestDecodeTurnRequestSchemaAsString(t *testing.T) {
	body := `{"schema": "{\"city\": null}", "user_query": "q", "max_attempts": "2", "user_role": "r", "task": "t", "job": "j", "attempt_count": "1"}`

	req, err := DecodeTurnRequest([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"city"}, req.Fields.Keys())
	assert.Equal(t, 2, req.Context.MaxAttempts)
	assert.Equal(t, 1, req.Context.AttemptCount)
}

func TestDecodeTurnRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty body", ``, errx.ErrEmptySchema},
		{"not json", `{nope`, errx.ErrValidation},
		{"schema missing", `{"user_query": "q"}`, errx.ErrEmptySchema},
		{"schema empty object", `{"schema": {}, "max_attempts": 3, "attempt_count": 0}`, errx.ErrEmptySchema},
		{"schema empty string", `{"schema": "", "max_attempts": 3, "attempt_count": 0}`, errx.ErrEmptySchema},
		{"schema checked before counts", `{"schema": {}}`, errx.ErrEmptySchema},
		{"no schema with bad max attempts", `{"max_attempts": "abc"}`, errx.ErrEmptySchema},
		{"no schema with fractional count", `{"attempt_count": 1.5, "max_attempts": 3}`, errx.ErrEmptySchema},
		{"no schema with numeric query", `{"user_query": 123}`, errx.ErrEmptySchema},
		{"schema with numeric query", `{"schema": {"a": null}, "user_query": 123, "max_attempts": 3, "attempt_count": 0}`, errx.ErrValidation},
		{"schema not an object", `{"schema": [1, 2], "max_attempts": 3, "attempt_count": 0}`, errx.ErrValidation},
		{"schema value not a string", `{"schema": {"guests": 2}, "max_attempts": 3, "attempt_count": 0}`, errx.ErrValidation},
		{"max attempts missing", `{"schema": {"a": null}, "attempt_count": 0}`, errx.ErrValidation},
		{"attempt count missing", `{"schema": {"a": null}, "max_attempts": 3}`, errx.ErrValidation},
		{"attempt count not a number", `{"schema": {"a": null}, "max_attempts": 3, "attempt_count": "two"}`, errx.ErrValidation},
		{"attempt count fractional", `{"schema": {"a": null}, "max_attempts": 3, "attempt_count": 1.5}`, errx.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTurnRequest([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in    string
		want  flexInt
		isErr bool
	}{
		{in: `3`, want: flexInt{Value: 3, Set: true}},
		{in: `"4"`, want: flexInt{Value: 4, Set: true}},
		{in: `" 5 "`, want: flexInt{Value: 5, Set: true}},
		{in: `2.0`, want: flexInt{Value: 2, Set: true}},
		{in: `null`, want: flexInt{}},
		{in: `""`, want: flexInt{}},
		{in: `"x"`, isErr: true},
		{in: `1e12`, isErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f flexInt
			err := f.UnmarshalJSON([]byte(tt.in))
			if tt.isErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}
