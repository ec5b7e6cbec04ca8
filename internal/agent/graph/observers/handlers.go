package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	agentmodel "github.com/askaquestion-genai/server/internal/agent/model"
)

// NewAllCallbacks aggregates the logging observers (prompt, model) into one callbacks.Handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// NewMetricsCallbacks reports chat model latency to rec.
func NewMetricsCallbacks(rec agentmodel.Recorder) einocb.Handler {
	if rec == nil {
		rec = agentmodel.NopRecorder{}
	}
	return callbackHelper.NewHandlerHelper().
		ChatModel(newTimingHandler(rec)).
		Handler()
}
