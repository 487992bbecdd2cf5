package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all voice-triage-agent configuration.
type Config struct {
	Env string `toml:"env"` // "development" or "production"

	Server ServerConfig `toml:"server"`
	OpenAI OpenAIConfig `toml:"openai"`
	Speech SpeechConfig `toml:"speech"`
	KB     KBConfig     `toml:"kb"`
	Tools  ToolsConfig  `toml:"tools"`
	OTel   OTelConfig   `toml:"otel"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type OpenAIConfig struct {
	APIKey    string `toml:"-"` // env only, never from file
	BaseURL   string `toml:"base_url"`
	ChatModel string `toml:"chat_model"`
}

type SpeechConfig struct {
	APIKey   string `toml:"-"` // env only
	VoiceID  string `toml:"voice_id"`
	STTModel string `toml:"stt_model"`
	Language string `toml:"language"`
}

type KBConfig struct {
	DataDir    string `toml:"data_dir"`
	CachePath  string `toml:"cache_path"`
	EmbedModel string `toml:"embed_model"`
	TopK       int    `toml:"top_k"`
}

type ToolsConfig struct {
	// Command launches the tool server as a stdio subprocess, one process per
	// invocation. Empty means dispatch in-process.
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type OTelConfig struct {
	Endpoint       string `toml:"endpoint"`
	ServiceName    string `toml:"service_name"`
	ServiceVersion string `toml:"service_version"`
	Headers        string `toml:"headers"`
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return !c.IsProduction()
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Env:    "development",
		Server: ServerConfig{Port: "8080"},
		OpenAI: OpenAIConfig{
			ChatModel: "gpt-4.1-mini",
		},
		Speech: SpeechConfig{
			VoiceID:  "21m00Tcm4TlvDq8ikWAM", // Rachel
			STTModel: "scribe_v1",
			Language: "en",
		},
		KB: KBConfig{
			DataDir:    "data",
			CachePath:  "kb-cache.db",
			EmbedModel: "text-embedding-3-small",
			TopK:       4,
		},
		OTel: OTelConfig{
			ServiceName:    "voice-triage-agent",
			ServiceVersion: "0.1.0",
		},
	}
}

// Load reads config from path if set, otherwise from the standard lookup
// paths, falling back to defaults. Secrets always come from the environment.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	paths := configPaths()
	if path != "" {
		paths = []string{path}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Speech.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	if cfg.Speech.APIKey == "" {
		cfg.Speech.APIKey = os.Getenv("ELEVEN_API_KEY")
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Env = env
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if dir := os.Getenv("KB_DATA_DIR"); dir != "" {
		cfg.KB.DataDir = dir
	}
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		cfg.OTel.Endpoint = ep
	}

	return cfg, nil
}

func configPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "voice-triage-agent", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "voice-triage-agent", "config.toml"))
	}
	paths = append(paths, "config.toml")
	return paths
}
