package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/askaquestion-genai/server/internal/agent/model"
)

var (
	//go:embed template/success.txt
	successSystemPrompt string
	//go:embed template/first_turn.txt
	firstTurnSystemPrompt string
	//go:embed template/exhausted.txt
	exhaustedSystemPrompt string
	//go:embed template/missing.txt
	missingSystemPrompt string
)

func replySystemPrompt(kind model.ReplyKind) (string, error) {
	switch kind {
	case model.ReplySuccess:
		return successSystemPrompt, nil
	case model.ReplyFirstTurn:
		return firstTurnSystemPrompt, nil
	case model.ReplyExhausted:
		return exhaustedSystemPrompt, nil
	case model.ReplyMissing:
		return missingSystemPrompt, nil
	default:
		return "", fmt.Errorf("unknown reply kind %q", kind)
	}
}

// replyUserContent is what the narration model is asked to talk about: the
// collected data for success and first-turn replies, the missing names otherwise.
func replyUserContent(in model.ReplyInput) (string, error) {
	switch in.Kind {
	case model.ReplySuccess, model.ReplyFirstTurn:
		b, err := in.Fields.MarshalJSON()
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		missing := in.Missing
		if missing == nil {
			missing = []string{}
		}
		return sonic.MarshalString(missing)
	}
}

// RenderReply renders the narration messages for the selected reply kind.
func RenderReply(ctx context.Context, in model.ReplyInput) ([]*schema.Message, error) {
	system, err := replySystemPrompt(in.Kind)
	if err != nil {
		return nil, fmt.Errorf("reply prompt: %w", err)
	}
	content, err := replyUserContent(in)
	if err != nil {
		return nil, fmt.Errorf("reply prompt content: %w", err)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(system),
		schema.UserMessage("{{.Content}}"),
	)
	vars := map[string]any{
		"UserRole":    in.Context.UserRole,
		"Task":        in.Context.Task,
		"Job":         in.Context.Job,
		"MissingList": strings.Join(in.Missing, ", "),
		"Content":     content,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("reply prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("reply prompt render: unexpected %d messages", len(msgs))
	}
	return msgs, nil
}
