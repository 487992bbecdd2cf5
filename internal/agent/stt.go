package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const elevenLabsSTTURL = "https://api.elevenlabs.io/v1/speech-to-text"

// ElevenLabs expects three-letter language codes.
var languageCodes = map[string]string{
	"en": "eng",
	"fr": "fra",
	"es": "spa",
	"ar": "ara",
}

type STTConfig struct {
	APIKey   string
	Model    string // defaults to scribe_v1
	Language string // two-letter code, empty = auto-detect
}

// ElevenLabsSTT transcribes audio clips with the ElevenLabs Scribe API.
type ElevenLabsSTT struct {
	cfg        STTConfig
	httpClient *http.Client
}

func NewElevenLabsSTT(cfg STTConfig) *ElevenLabsSTT {
	if cfg.Model == "" {
		cfg.Model = "scribe_v1"
	}
	return &ElevenLabsSTT{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type sttResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

func (c *ElevenLabsSTT) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audioData); err != nil {
		return "", err
	}

	if err := writer.WriteField("model_id", c.cfg.Model); err != nil {
		return "", err
	}
	if code, ok := languageCodes[c.cfg.Language]; ok {
		if err := writer.WriteField("language_code", code); err != nil {
			return "", err
		}
	}

	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", elevenLabsSTTURL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("STT API error: %s - %s", resp.Status, string(respBody))
	}

	var result sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Text, nil
}
