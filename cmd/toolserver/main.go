// Command toolserver runs the healthcare tool dispatch server over stdio so
// the intake server can spawn it per invocation.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"voice-triage-agent/internal/config"
	"voice-triage-agent/internal/kb"
	"voice-triage-agent/internal/logger"
	"voice-triage-agent/internal/triage"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.SetupWriter(cfg, os.Stderr)

	if cfg.OpenAI.APIKey == "" {
		slog.Error("OPENAI_API_KEY is not set")
		os.Exit(1)
	}

	ctx := context.Background()

	oc := openai.NewClient(option.WithAPIKey(cfg.OpenAI.APIKey))
	knowledge, err := kb.New(ctx, kb.Config{
		DataDir:    cfg.KB.DataDir,
		CachePath:  cfg.KB.CachePath,
		EmbedModel: cfg.KB.EmbedModel,
		ChatModel:  cfg.OpenAI.ChatModel,
		TopK:       cfg.KB.TopK,
	}, oc)
	if err != nil {
		slog.Error("knowledge base init failed", "error", err)
		os.Exit(1)
	}

	srv := triage.NewServer(knowledge).MCPServer()
	if err := srv.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		slog.Error("tool server exited", "error", err)
		os.Exit(1)
	}
}
