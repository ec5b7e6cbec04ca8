package graph

import (
	"context"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/askaquestion-genai/server/internal/agent/graph/nodes"
	"github.com/askaquestion-genai/server/internal/agent/graph/observers"
	"github.com/askaquestion-genai/server/internal/agent/graph/patch"
	"github.com/askaquestion-genai/server/internal/agent/graph/tools"
	"github.com/askaquestion-genai/server/internal/agent/model"
	errx "github.com/askaquestion-genai/server/internal/core/error"
	logx "github.com/askaquestion-genai/server/pkg/logger"
)

// maxRunSteps bounds each graph run; both graphs are acyclic and short.
const maxRunSteps = 10

// Runner processes one slot-filling turn.
type Runner interface {
	Process(ctx context.Context, req model.TurnRequest) (*model.TurnResult, error)
}

// Config holds everything needed to build the turn graphs.
type Config struct {
	// ChatModel serves both the extraction and the reply calls.
	ChatModel einomodel.BaseChatModel
	// ModelName is used for pricing and logs.
	ModelName string
	Recorder  model.Recorder
	// Callbacks are attached to every graph run in addition to the built-in
	// logging and metrics observers.
	Callbacks []einocb.Handler
}

type turnRunner struct {
	extraction compose.Runnable[model.TurnRequest, *model.Extraction]
	reply      compose.Runnable[model.ReplyInput, *model.Reply]
	callbacks  []einocb.Handler
}

// BuildTurnGraph compiles the extraction and reply graphs and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = model.NopRecorder{}
	}

	extraction, err := BuildExtractionGraph(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	reply, err := BuildReplyGraph(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	handlers := []einocb.Handler{observers.NewAllCallbacks(), observers.NewMetricsCallbacks(cfg.Recorder)}
	handlers = append(handlers, cfg.Callbacks...)

	logx.Debug().Str("model", cfg.ModelName).Msg("Turn graphs built successfully")
	return &turnRunner{extraction: extraction, reply: reply, callbacks: handlers}, nil
}

// BuildExtractionGraph compiles prompt -> chat model -> parser.
func BuildExtractionGraph(ctx context.Context, cfg *Config) (compose.Runnable[model.TurnRequest, *model.Extraction], error) {
	g := compose.NewGraph[model.TurnRequest, *model.Extraction](
		compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
			return &model.TurnState{}
		}),
	)

	_ = g.AddLambdaNode(nodes.NodeExtractionPrompt,
		nodes.NewExtractionPromptNode(),
		compose.WithStatePreHandler(nodes.NewExtractionPromptPreHandler()),
	)
	_ = g.AddChatModelNode(nodes.NodeExtractionChatModel, cfg.ChatModel,
		compose.WithNodeName(nodes.StageExtraction),
		compose.WithStatePostHandler(nodes.NewChatModelPostHandler(cfg.ModelName, cfg.Recorder)),
	)
	_ = g.AddLambdaNode(nodes.NodeExtractionParser, nodes.NewExtractionParserNode())

	edges := [][2]string{
		{compose.START, nodes.NodeExtractionPrompt},
		{nodes.NodeExtractionPrompt, nodes.NodeExtractionChatModel},
		{nodes.NodeExtractionChatModel, nodes.NodeExtractionParser},
		{nodes.NodeExtractionParser, compose.END},
	}
	for _, edge := range edges {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("error adding extraction edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName("extraction"), compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling extraction graph")
		return nil, fmt.Errorf("error compiling extraction graph: %w", err)
	}
	return runnable, nil
}

// BuildReplyGraph compiles a branch on the reply kind into one of the prompt
// nodes, followed by the chat model and the finalizer.
func BuildReplyGraph(ctx context.Context, cfg *Config) (compose.Runnable[model.ReplyInput, *model.Reply], error) {
	g := compose.NewGraph[model.ReplyInput, *model.Reply](
		compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
			return &model.TurnState{}
		}),
	)

	promptNodes := []string{
		nodes.NodeSuccessPrompt,
		nodes.NodeFirstTurnPrompt,
		nodes.NodeExhaustedPrompt,
		nodes.NodeMissingPrompt,
	}
	endNodes := make(map[string]bool, len(promptNodes))
	for _, key := range promptNodes {
		_ = g.AddLambdaNode(key, nodes.NewReplyPromptNode(),
			compose.WithStatePreHandler(nodes.NewReplyPromptPreHandler()),
		)
		endNodes[key] = true
	}
	_ = g.AddChatModelNode(nodes.NodeReplyChatModel, cfg.ChatModel,
		compose.WithNodeName(nodes.StageReply),
		compose.WithStatePostHandler(nodes.NewChatModelPostHandler(cfg.ModelName, cfg.Recorder)),
	)
	_ = g.AddLambdaNode(nodes.NodeReplyFinalizer, nodes.NewReplyFinalizerNode())

	if err := g.AddBranch(compose.START, compose.NewGraphBranch(nodes.NewReplyRouterCondition(), endNodes)); err != nil {
		logx.Error().Err(err).Msg("Error adding reply branch")
		return nil, fmt.Errorf("error adding reply branch: %w", err)
	}
	for _, key := range promptNodes {
		if err := g.AddEdge(key, nodes.NodeReplyChatModel); err != nil {
			return nil, fmt.Errorf("error adding reply edge %s: %w", key, err)
		}
	}
	if err := g.AddEdge(nodes.NodeReplyChatModel, nodes.NodeReplyFinalizer); err != nil {
		return nil, fmt.Errorf("error adding reply edge: %w", err)
	}
	if err := g.AddEdge(nodes.NodeReplyFinalizer, compose.END); err != nil {
		return nil, fmt.Errorf("error adding reply edge: %w", err)
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName("reply"), compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling reply graph")
		return nil, fmt.Errorf("error compiling reply graph: %w", err)
	}
	return runnable, nil
}

// Process validates the request, extracts and merges field values, and asks
// the model for the reply. Model failures degrade the turn instead of failing it.
func (r *turnRunner) Process(ctx context.Context, req model.TurnRequest) (*model.TurnResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	next := req.Context.AttemptCount + 1

	toolInfo, err := tools.RecordFieldsToolInfo(req.Fields.Keys())
	if err != nil {
		return nil, errx.Internal(err)
	}

	ext, err := r.extraction.Invoke(ctx, req,
		compose.WithCallbacks(r.callbacks...),
		compose.WithChatModelOption(
			einomodel.WithTools([]*schema.ToolInfo{toolInfo}),
			einomodel.WithToolChoice(schema.ToolChoiceForced, toolInfo.Name),
		),
	)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Str("stage", nodes.StageExtraction).
			Msg("Extraction failed, asking again")
		return degraded(req.Fields.Clone(), next, 0), nil
	}

	merged, changed, err := patch.Merge(req.Fields, ext.Values)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Msg("Merge failed, asking again")
		return degraded(req.Fields.Clone(), next, ext.CostUSD), nil
	}
	missing := merged.Missing()
	kind := ReplyKindFor(merged, req.Context.AttemptCount, next, req.Context.MaxAttempts)

	logx.Debug().
		Str("session_id", req.SessionID).
		Str("source", ext.Source).
		Strs("changed_fields", changed).
		Strs("missing_fields", missing).
		Str("reply_kind", string(kind)).
		Msg("Fields merged")

	reply, err := r.reply.Invoke(ctx, model.ReplyInput{
		SessionID: req.SessionID,
		Kind:      kind,
		Context:   req.Context,
		Fields:    merged,
		Missing:   missing,
	}, compose.WithCallbacks(r.callbacks...))
	if err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Str("stage", nodes.StageReply).
			Msg("Reply failed, asking again")
		return degraded(merged, next, ext.CostUSD), nil
	}

	text := reply.Text
	return &model.TurnResult{
		Message:       &text,
		NeedsMoreInfo: kind != model.ReplySuccess,
		Fields:        merged,
		AttemptCount:  next,
		Outcome:       outcomeFor(kind),
		Missing:       missing,
		CostUSD:       ext.CostUSD + reply.CostUSD,
	}, nil
}

// ReplyKindFor decides how to answer after the merge. A complete set always
// succeeds. Otherwise running out of attempts wins over the first-turn prompt,
// so a session with a single attempt is told it is exhausted. This reverses
// the usual step order, where the first turn is checked before the attempt
// limit.
func ReplyKindFor(fields model.FieldSet, suppliedCount, next, maxAttempts int) model.ReplyKind {
	switch {
	case fields.Complete():
		return model.ReplySuccess
	case next >= maxAttempts:
		return model.ReplyExhausted
	case suppliedCount == 0:
		return model.ReplyFirstTurn
	default:
		return model.ReplyMissing
	}
}

func outcomeFor(kind model.ReplyKind) model.Outcome {
	switch kind {
	case model.ReplySuccess:
		return model.OutcomeComplete
	case model.ReplyExhausted:
		return model.OutcomeExhausted
	default:
		return model.OutcomeCollecting
	}
}

// degraded builds the result of a turn whose model call failed. The message is
// absent and the caller is asked to try again, unless every field is already
// filled.
func degraded(fields model.FieldSet, next int, cost float64) *model.TurnResult {
	return &model.TurnResult{
		Message:       nil,
		NeedsMoreInfo: !fields.Complete(),
		Fields:        fields,
		AttemptCount:  next,
		Outcome:       model.OutcomeDegraded,
		Missing:       fields.Missing(),
		CostUSD:       cost,
	}
}
