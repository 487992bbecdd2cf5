package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"voice-triage-agent/internal/intake"
)

const personaPrompt = "You are a warm, empathetic medical intake agent speaking ENGLISH. " +
	"Your job is to ask clear questions about the patient's symptoms, " +
	"duration, risk factors, and any relevant context. " +
	"Keep answers short, natural, and friendly, like a real call center nurse."

const extractionPrompt = "You are a medical assistant. From the following conversation between an agent " +
	"and a patient, extract a STRICT JSON object with the keys: " +
	"age (int), symptoms (string), duration (string), " +
	"risk_factors (string), other_context (string). " +
	"If information is missing, fill with an empty string or a reasonable default."

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client drives the intake dialog and the end-of-call profile extraction.
type Client struct {
	openai openai.Client
	model  string
}

func NewOpenAIClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4.1-mini"
	}

	return &Client{
		openai: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Reply runs one completion over the persona prompt plus the whole dialog.
func (c *Client) Reply(ctx context.Context, turns []intake.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	messages = append(messages, openai.SystemMessage(personaPrompt))
	for _, t := range turns {
		if t.Role == intake.RolePatient {
			messages = append(messages, openai.UserMessage(t.Text))
		} else {
			messages = append(messages, openai.AssistantMessage(t.Text))
		}
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	slog.DebugContext(ctx, "dialog completion",
		"model", c.model,
		"turns", len(turns),
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

// ExtractProfile runs the schema-constrained extraction over the transcript.
func (c *Client) ExtractProfile(ctx context.Context, transcript string) (intake.PatientProfile, error) {
	var profile intake.PatientProfile

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "patient_profile",
		Description: openai.String("Structured patient profile"),
		Schema:      generateSchema[intake.PatientProfile](),
		Strict:      openai.Bool(true),
	}

	resp, err := c.openai.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractionPrompt),
			openai.UserMessage(transcript),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return profile, fmt.Errorf("openai extraction: %w", err)
	}
	if len(resp.Choices) == 0 {
		return profile, fmt.Errorf("no choices in extraction response")
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &profile); err != nil {
		return profile, fmt.Errorf("unmarshal profile: %w", err)
	}
	return profile, nil
}

func generateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
