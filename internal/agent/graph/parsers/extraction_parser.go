package parsers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"

	"github.com/askaquestion-genai/server/internal/agent/graph/tools"
	errx "github.com/askaquestion-genai/server/internal/core/error"
	logx "github.com/askaquestion-genai/server/pkg/logger"
)

const (
	SourceToolCall = "tool_call"
	SourceContent  = "content"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxValueLen   = 8 * 1024   // 8KB per field value
	maxErrSnippet = 200        // limit error snippet size
)

// ParseExtraction reads field values out of an extraction reply. The forced
// record_fields tool call is preferred; a JSON object in the message content is
// accepted as a fallback for providers that answer in text. Only keys listed in
// keys are kept, and none-markers come back as nil values.
func ParseExtraction(msg *schema.Message, keys []string) (values map[string]*string, source string, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "extraction_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("extraction parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			values, source = nil, ""
		}
	}()

	if msg == nil {
		return nil, "", fmt.Errorf("extraction reply is nil")
	}

	raw, source := extractionPayload(msg)
	if raw == "" {
		return nil, "", fmt.Errorf("no extraction payload in reply: %s", safeSnippet(msg.Content))
	}
	if len(raw) > maxContentLen {
		logx.Warn().
			Str("component", "extraction_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(raw)).
			Msg("extraction payload rejected due to size limit")
		return nil, "", fmt.Errorf("extraction payload too large")
	}

	var decoded map[string]any
	if err := sonic.UnmarshalString(raw, &decoded); err != nil {
		return nil, "", fmt.Errorf("decode extraction payload %q: %w", safeSnippet(raw), err)
	}

	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}

	values = make(map[string]*string, len(keys))
	for k, v := range decoded {
		if _, ok := allowed[k]; !ok {
			logx.Debug().Str("component", "extraction_parser").Str("field", k).Msg("ignoring unknown field")
			continue
		}
		s, ok := scalarText(v)
		if !ok {
			logx.Debug().Str("component", "extraction_parser").Str("field", k).Msg("ignoring non-scalar value")
			continue
		}
		if IsNone(s) || !utf8.ValidString(s) || len(s) > maxValueLen {
			values[k] = nil
			continue
		}
		values[k] = &s
	}
	return values, source, nil
}

// IsNone reports whether s is a none-marker: blank, or a literal None/null.
func IsNone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	return strings.EqualFold(s, tools.NoneMarker) || strings.EqualFold(s, "null")
}

func extractionPayload(msg *schema.Message) (string, string) {
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == tools.ToolRecordFields || tc.Function.Name == "" {
			if args := strings.TrimSpace(tc.Function.Arguments); args != "" {
				return args, SourceToolCall
			}
		}
	}
	return jsonObjectIn(msg.Content), SourceContent
}

// jsonObjectIn returns the outermost {...} span of s, which also strips code
// fences some models wrap around JSON answers.
func jsonObjectIn(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func scalarText(v any) (string, bool) {
	switch vv := v.(type) {
	case nil:
		return "", true
	case string:
		return strings.TrimSpace(vv), true
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(vv), true
	default:
		return "", false
	}
}

// --- helpers ---

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
