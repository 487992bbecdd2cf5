package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const elevenLabsTTSURL = "https://api.elevenlabs.io/v1/text-to-speech"

type TTSConfig struct {
	APIKey  string
	VoiceID string
}

// ElevenLabsTTS synthesizes agent replies with the ElevenLabs API.
type ElevenLabsTTS struct {
	cfg        TTSConfig
	httpClient *http.Client
}

func NewElevenLabsTTS(cfg TTSConfig) *ElevenLabsTTS {
	if cfg.VoiceID == "" {
		cfg.VoiceID = "21m00Tcm4TlvDq8ikWAM" // Default Rachel
	}
	return &ElevenLabsTTS{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ttsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

func (c *ElevenLabsTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", elevenLabsTTSURL, c.cfg.VoiceID)

	reqBody := ttsRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
	}
	reqBody.VoiceSettings.Stability = 0.5
	reqBody.VoiceSettings.SimilarityBoost = 0.8

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS API error: %s - %s", resp.Status, string(body))
	}

	return io.ReadAll(resp.Body)
}
