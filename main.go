package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/askaquestion-genai/server/internal/agent/conversations"
	"github.com/askaquestion-genai/server/internal/agent/graph"
	"github.com/askaquestion-genai/server/internal/agent/graph/nodes"
	"github.com/askaquestion-genai/server/internal/agent/model"
	"github.com/askaquestion-genai/server/internal/agent/repo"
	"github.com/askaquestion-genai/server/internal/api"
	"github.com/askaquestion-genai/server/internal/core"
	logx "github.com/askaquestion-genai/server/pkg/logger"
	"github.com/askaquestion-genai/server/pkg/metrics"
	pkgredis "github.com/askaquestion-genai/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	// Runtime is "http" or "lambda"; empty picks lambda inside AWS Lambda.
	Runtime string `envconfig:"APP_RUNTIME"`

	// HTTP transport
	HTTPAddr           string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPRequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"60s"`

	// Infrastructure, optional
	Redis pkgredis.Config

	// Agent configs
	LLM        model.LLMConfig
	Transcript model.TranscriptConfig
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatModel, err := nodes.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		logx.Fatal().Err(err).Str("provider", cfg.LLM.Provider).Msg("Failed to create chat model")
	}

	m := metrics.New()
	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		ChatModel: chatModel,
		ModelName: cfg.LLM.Model,
		Recorder:  m,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build turn graph")
	}

	var transcripts *conversations.TranscriptManager
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()
		transcripts = conversations.NewTranscriptManager(
			repo.NewRedisTranscriptRepository(rdb, cfg.Transcript.TTL, cfg.Transcript.MaxTurns),
			cfg.Transcript,
		)
		logx.Info().Dur("ttl", cfg.Transcript.TTL).Msg("Transcripts stored in Redis")
	}

	svc := api.NewService(runner, transcripts, m)

	runtime := core.ResolveRuntime(cfg.Runtime, os.Getenv("AWS_LAMBDA_FUNCTION_NAME"))
	logx.Info().
		Str("environment", env.String()).
		Str("runtime", string(runtime)).
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Msg("Service starting")

	if runtime == core.RuntimeLambda {
		lambda.StartWithOptions(api.LambdaHandler(svc), lambda.WithContext(ctx))
		return
	}

	router := api.NewRouter(svc, m, api.RouterConfig{RequestTimeout: cfg.HTTPRequestTimeout})
	if err := api.NewServer(cfg.HTTPAddr, router).Run(ctx); err != nil {
		logx.Error().Err(err).Msg("HTTP server stopped with error")
		stop()
		os.Exit(1)
	}
}
