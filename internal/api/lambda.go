package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bytedance/sonic"

	errx "github.com/askaquestion-genai/server/internal/core/error"
	logx "github.com/askaquestion-genai/server/pkg/logger"
)

// lambdaEvent is the part of an invocation the handler reads. Body is kept raw
// because API Gateway sends a string while direct invocations may send the
// turn as an object.
type lambdaEvent struct {
	Body            json.RawMessage                      `json:"body"`
	IsBase64Encoded bool                                 `json:"isBase64Encoded"`
	HTTPMethod      string                               `json:"httpMethod"`
	Path            string                               `json:"path"`
	RequestContext  events.APIGatewayProxyRequestContext `json:"requestContext"`
}

// LambdaHandler serves turns behind an API Gateway proxy integration or from
// direct invocations.
func LambdaHandler(svc *Service) func(context.Context, json.RawMessage) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, payload json.RawMessage) (events.APIGatewayProxyResponse, error) {
		var ev lambdaEvent
		if err := sonic.Unmarshal(payload, &ev); err != nil {
			status, out := errorPayload(errx.Validation("event is not a JSON object"))
			return proxyResponse(status, out), nil
		}
		logx.Debug().
			Str("request_id", ev.RequestContext.RequestID).
			Str("method", ev.HTTPMethod).
			Str("path", ev.Path).
			Bool("base64", ev.IsBase64Encoded).
			Msg("Lambda event")

		body, err := eventBody(ev)
		if err != nil {
			status, out := errorPayload(err)
			return proxyResponse(status, out), nil
		}

		status, out := svc.HandleTurn(ctx, body)
		return proxyResponse(status, out), nil
	}
}

// eventBody returns the turn bytes. A string body is unquoted and, when
// flagged, base64-decoded; an object body is used as is; no body reads as {}.
func eventBody(ev lambdaEvent) ([]byte, error) {
	raw := bytes.TrimSpace(ev.Body)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []byte("{}"), nil
	}
	if raw[0] != '"' {
		return raw, nil
	}
	var s string
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return nil, errx.Validation("body is not a valid JSON string")
	}
	if !ev.IsBase64Encoded {
		return []byte(s), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errx.Validation("body is not valid base64")
	}
	return decoded, nil
}

func proxyResponse(status int, payload any) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
	if payload != nil {
		resp.Body = string(encode(payload))
	}
	if status == http.StatusNoContent {
		resp.Headers = nil
	}
	return resp
}
