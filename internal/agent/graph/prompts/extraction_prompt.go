package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/askaquestion-genai/server/internal/agent/graph/tools"
	"github.com/askaquestion-genai/server/internal/agent/model"
)

//go:embed template/extraction.txt
var extractionSystemPrompt string

// RenderExtraction renders the extraction messages for one turn via the Eino
// prompt component, which also emits prompt callbacks.
func RenderExtraction(ctx context.Context, req model.TurnRequest) ([]*schema.Message, error) {
	keys := req.Fields.Keys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("extraction prompt: no fields")
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(extractionSystemPrompt),
		schema.UserMessage("{{.Utterance}}"),
	)
	vars := map[string]any{
		"Job":        req.Context.Job,
		"Task":       req.Context.Task,
		"ToolName":   tools.ToolRecordFields,
		"FieldList":  strings.Join(keys, ", "),
		"NoneMarker": tools.NoneMarker,
		"Utterance":  req.Utterance,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("extraction prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("extraction prompt render: unexpected %d messages", len(msgs))
	}
	return msgs, nil
}
