package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	agentmodel "github.com/askaquestion-genai/server/internal/agent/model"
)

type startKey struct{}

// newTimingHandler measures every chat model call and reports it under the
// node name, which identifies the stage (extraction or reply).
func newTimingHandler(rec agentmodel.Recorder) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			return context.WithValue(ctx, startKey{}, time.Now())
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			rec.ObserveModelCall(info.Name, sinceStart(ctx), nil)
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			rec.ObserveModelCall(info.Name, sinceStart(ctx), err)
			return ctx
		},
	}
}

func sinceStart(ctx context.Context) time.Duration {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}
