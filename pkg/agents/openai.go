// Package agents implements the brain's model-backed collaborators:
// transcription, intent classification, conversational replies, movement
// planning, and speech synthesis. Two chat backends are provided, OpenAI
// and Gemini, selected by configuration; audio always goes through OpenAI.
package agents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/chaosbotics/chaos/pkg/audio/pcm"
	"github.com/chaosbotics/chaos/pkg/brain"
	"github.com/chaosbotics/chaos/pkg/tools"
)

// OpenAIConfig selects the OpenAI models.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// ChatModel handles classify, respond and plan. Defaults to gpt-4o-mini.
	ChatModel string
	// TranscribeModel defaults to whisper-1.
	TranscribeModel string
	// SpeechModel defaults to tts-1 with the alloy voice.
	SpeechModel string
	Voice       string
}

func (c *OpenAIConfig) withDefaults() OpenAIConfig {
	out := *c
	if out.ChatModel == "" {
		out.ChatModel = "gpt-4o-mini"
	}
	if out.TranscribeModel == "" {
		out.TranscribeModel = "whisper-1"
	}
	if out.SpeechModel == "" {
		out.SpeechModel = "tts-1"
	}
	if out.Voice == "" {
		out.Voice = "alloy"
	}
	return out
}

// OpenAI implements the brain collaborators over the OpenAI API.
type OpenAI struct {
	cfg    OpenAIConfig
	client openai.Client
	log    *slog.Logger
}

// NewOpenAI creates the agent. The API key is required.
func NewOpenAI(cfg OpenAIConfig, log *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("agents: openai api key is empty")
	}
	if log == nil {
		log = slog.Default()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		cfg:    cfg.withDefaults(),
		client: openai.NewClient(opts...),
		log:    log.With("component", "agents"),
	}, nil
}

// Transcribe converts captured audio to text via the transcription endpoint.
func (a *OpenAI) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	wav := pcm.EncodeWAV(samples, sampleRate)
	resp, err := a.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: a.cfg.TranscribeModel,
		File:  openai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
	})
	if err != nil {
		return "", fmt.Errorf("agents: transcribe: %w", err)
	}
	return resp.Text, nil
}

// classification is the classifier's response shape.
type classification struct {
	Intent string `json:"intent"`
}

// Classify decides action vs conversation with a schema-constrained reply.
func (a *OpenAI) Classify(ctx context.Context, transcript string) (brain.Intent, error) {
	schema, err := jsonschema.For[classification](nil)
	if err != nil {
		return "", fmt.Errorf("agents: classification schema: %w", err)
	}
	raw, err := a.completeJSON(ctx, classifierPrompt, transcript, "classification", schema)
	if err != nil {
		return "", err
	}
	var c classification
	if err := decodeJSON(raw, &c); err != nil {
		return "", fmt.Errorf("agents: decode classification %q: %w", raw, err)
	}
	if strings.EqualFold(c.Intent, string(brain.IntentAction)) {
		return brain.IntentAction, nil
	}
	return brain.IntentConversation, nil
}

// Respond produces a short spoken reply.
func (a *OpenAI) Respond(ctx context.Context, transcript string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(responderPrompt),
			openai.UserMessage(transcript),
		},
	})
	if err != nil {
		return "", fmt.Errorf("agents: respond: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("agents: respond: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// planDoc mirrors the wire shape tools.DecodePlan expects, used only to give
// the model a schema to fill.
type planDoc struct {
	Steps []planStep `json:"steps"`
}

type planStep struct {
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args,omitempty"`
	HoldSeconds float64        `json:"hold_seconds,omitempty"`
}

// Plan turns an actionable utterance into a movement plan.
func (a *OpenAI) Plan(ctx context.Context, transcript string) (*tools.Plan, error) {
	schema, err := jsonschema.For[planDoc](nil)
	if err != nil {
		return nil, fmt.Errorf("agents: plan schema: %w", err)
	}
	raw, err := a.completeJSON(ctx, plannerPrompt, transcript, "movement_plan", schema)
	if err != nil {
		return nil, err
	}
	return tools.DecodePlan(raw)
}

// completeJSON runs one chat completion with a JSON-schema response format
// and returns the raw content for the caller to decode.
func (a *OpenAI) completeJSON(ctx context.Context, prompt, input, name string, schema *jsonschema.Schema) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(input),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: schema,
					Strict: param.NewOpt(false),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("agents: %s: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("agents: %s: no choices", name)
	}
	if r := resp.Choices[0].Message.Refusal; r != "" {
		return "", fmt.Errorf("agents: %s: blocked: %s", name, r)
	}
	return resp.Choices[0].Message.Content, nil
}

// speechRate is the sample rate of the PCM speech endpoint output.
const speechRate = 24000

// Synthesize renders text to a mono PCM stream at speechRate.
func (a *OpenAI) Synthesize(ctx context.Context, text string) (io.ReadCloser, pcm.Format, error) {
	format := pcm.Format{SampleRate: speechRate}
	resp, err := a.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          a.cfg.SpeechModel,
		Voice:          openai.AudioSpeechNewParamsVoice(a.cfg.Voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, format, fmt.Errorf("agents: synthesize: %w", err)
	}
	return resp.Body, format, nil
}
