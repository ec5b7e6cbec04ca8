package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/askaquestion-genai/server/internal/agent/graph/parsers"
	"github.com/askaquestion-genai/server/internal/agent/graph/prompts"
	"github.com/askaquestion-genai/server/internal/agent/model"
	logx "github.com/askaquestion-genai/server/pkg/logger"
)

// ================ Extraction ================

// NewExtractionPromptPreHandler seeds the graph state for an extraction run.
func NewExtractionPromptPreHandler() func(context.Context, model.TurnRequest, *model.TurnState) (model.TurnRequest, error) {
	return func(ctx context.Context, in model.TurnRequest, s *model.TurnState) (model.TurnRequest, error) {
		s.SessionID = in.SessionID
		s.Stage = StageExtraction
		s.Keys = in.Fields.Keys()
		s.CostUSD = 0
		return in, nil
	}
}

// NewExtractionPromptNode renders the extraction messages for the turn.
func NewExtractionPromptNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnRequest) ([]*schema.Message, error) {
		msgs, err := prompts.RenderExtraction(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("render extraction prompt: %w", err)
		}
		return msgs, nil
	})
}

// NewExtractionParserNode decodes the extraction reply into field values,
// keeping only the fields recorded in the state for this run.
func NewExtractionParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (*model.Extraction, error) {
		var (
			keys      []string
			sessionID string
			cost      float64
		)
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			keys, sessionID, cost = s.Keys, s.SessionID, s.CostUSD
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		values, source, err := parsers.ParseExtraction(resp, keys)
		if err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("Error parsing extraction reply")
			return nil, err
		}
		return &model.Extraction{Values: values, Source: source, CostUSD: cost}, nil
	})
}

// ================ Reply ================

// NewReplyRouterCondition picks the prompt node for the reply kind.
func NewReplyRouterCondition() func(context.Context, model.ReplyInput) (string, error) {
	return func(ctx context.Context, in model.ReplyInput) (string, error) {
		var next string
		switch in.Kind {
		case model.ReplySuccess:
			next = NodeSuccessPrompt
		case model.ReplyFirstTurn:
			next = NodeFirstTurnPrompt
		case model.ReplyExhausted:
			next = NodeExhaustedPrompt
		case model.ReplyMissing:
			next = NodeMissingPrompt
		default:
			return "", fmt.Errorf("unknown reply kind %q", in.Kind)
		}
		logx.Debug().
			Str("session_id", in.SessionID).
			Str("reply_kind", string(in.Kind)).
			Strs("missing_fields", in.Missing).
			Msg("Routing reply")
		return next, nil
	}
}

// NewReplyPromptPreHandler seeds the graph state for a reply run.
func NewReplyPromptPreHandler() func(context.Context, model.ReplyInput, *model.TurnState) (model.ReplyInput, error) {
	return func(ctx context.Context, in model.ReplyInput, s *model.TurnState) (model.ReplyInput, error) {
		s.SessionID = in.SessionID
		s.Stage = StageReply
		s.CostUSD = 0
		return in, nil
	}
}

// NewReplyPromptNode renders the narration messages. The same lambda serves
// every reply branch; the kind on the input selects the template.
func NewReplyPromptNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.ReplyInput) ([]*schema.Message, error) {
		msgs, err := prompts.RenderReply(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("render reply prompt: %w", err)
		}
		return msgs, nil
	})
}

// NewReplyFinalizerNode turns the narration reply into the user message.
func NewReplyFinalizerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (*model.Reply, error) {
		if resp == nil {
			return nil, fmt.Errorf("reply is nil")
		}
		text := strings.TrimSpace(resp.Content)
		if text == "" {
			return nil, fmt.Errorf("reply has no content")
		}
		var cost float64
		_ = compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			cost = s.CostUSD
			return nil
		})
		return &model.Reply{Text: text, CostUSD: cost}, nil
	})
}

// ================ Chat models ================

// NewChatModelPostHandler computes and logs usage cost for a model node and
// accumulates it into the graph state. The message passes through unchanged.
func NewChatModelPostHandler(modelName string, rec model.Recorder) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.TurnState) (*schema.Message, error) {
		if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
			return out, nil
		}
		usage := out.ResponseMeta.Usage
		pricing := model.ResolvePricing(modelName)
		inC, outC, totalC := model.ComputeCost(usage, pricing)
		logx.Debug().
			Str("session_id", state.SessionID).
			Str("stage", state.Stage).
			Str("model", modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")

		state.CostUSD += totalC
		if rec != nil {
			rec.AddModelCost(state.Stage, modelName, totalC)
		}
		return out, nil
	}
}
