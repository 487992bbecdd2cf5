package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"voice-triage-agent/internal/agent"
	"voice-triage-agent/internal/config"
	"voice-triage-agent/internal/intake"
	"voice-triage-agent/internal/kb"
	"voice-triage-agent/internal/logger"
	"voice-triage-agent/internal/report"
	"voice-triage-agent/internal/telemetry"
	"voice-triage-agent/internal/triage"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	// 1. Configuration
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		slog.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}
	if tel != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				slog.Warn("telemetry shutdown", "error", err)
			}
		}()
	}
	logger.Setup(cfg)

	if cfg.OpenAI.APIKey == "" {
		slog.Error("OPENAI_API_KEY is not set")
		os.Exit(1)
	}
	if cfg.Speech.APIKey == "" {
		slog.Warn("ELEVENLABS_API_KEY is not set, voice turns will fail over to text")
	}

	// 2. Clients
	chatClient, err := agent.NewOpenAIClient(agent.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
	})
	if err != nil {
		slog.Error("openai client init failed", "error", err)
		os.Exit(1)
	}

	sttClient := agent.NewElevenLabsSTT(agent.STTConfig{
		APIKey:   cfg.Speech.APIKey,
		Model:    cfg.Speech.STTModel,
		Language: cfg.Speech.Language,
	})
	ttsClient := agent.NewElevenLabsTTS(agent.TTSConfig{
		APIKey:  cfg.Speech.APIKey,
		VoiceID: cfg.Speech.VoiceID,
	})

	toolClient, err := buildToolClient(ctx, cfg)
	if err != nil {
		slog.Error("tool dispatch init failed", "error", err)
		os.Exit(1)
	}

	// 3. Services
	store := intake.NewStore()
	intakeSvc := intake.NewService(store, chatClient, sttClient, ttsClient, toolClient)
	reportSvc := report.NewService()
	handler := intake.NewHandler(intakeSvc, reportSvc)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the browser frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		intake.RegisterRoutes(r, handler)
	})

	slog.Info("server starting", "port", cfg.Server.Port)
	if err := http.ListenAndServe(":"+cfg.Server.Port, r); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// buildToolClient picks the dispatch transport: a stdio subprocess when a
// tool server command is configured, otherwise an in-process server sharing
// this process's knowledge index.
func buildToolClient(ctx context.Context, cfg config.Config) (intake.ToolClient, error) {
	if cfg.Tools.Command != "" {
		return triage.NewCommandClient(cfg.Tools.Command, cfg.Tools.Args...), nil
	}

	oc := openai.NewClient(option.WithAPIKey(cfg.OpenAI.APIKey))
	knowledge, err := kb.New(ctx, kb.Config{
		DataDir:    cfg.KB.DataDir,
		CachePath:  cfg.KB.CachePath,
		EmbedModel: cfg.KB.EmbedModel,
		ChatModel:  cfg.OpenAI.ChatModel,
		TopK:       cfg.KB.TopK,
	}, oc)
	if err != nil {
		return nil, err
	}
	return triage.NewInProcessClient(triage.NewServer(knowledge)), nil
}
