package nodes

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/askaquestion-genai/server/internal/agent/model"
	logx "github.com/askaquestion-genai/server/pkg/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// NewChatModel creates the chat model shared by the extraction and reply graphs.
func NewChatModel(ctx context.Context, cfg model.LLMConfig) (einomodel.ToolCallingChatModel, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model name is empty")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return newOpenAIChatModel(ctx, cfg)
	case ProviderGemini:
		return newGeminiChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func newOpenAIChatModel(ctx context.Context, cfg model.LLMConfig) (einomodel.ToolCallingChatModel, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", ProviderOpenAI)
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		APIVersion:  cfg.OpenAI.APIVersion,
		ByAzure:     cfg.OpenAI.ByAzure,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating OpenAI chat model")
		return nil, fmt.Errorf("error creating OpenAI chat model: %w", err)
	}
	return cm, nil
}

func newGeminiChatModel(ctx context.Context, cfg model.LLMConfig) (einomodel.ToolCallingChatModel, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for provider %q", ProviderGemini)
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Gemini.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.Gemini.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini chat model")
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}
	return cm, nil
}
