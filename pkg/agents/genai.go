package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/chaosbotics/chaos/pkg/brain"
	"github.com/chaosbotics/chaos/pkg/tools"
)

// GenAIConfig selects the Gemini chat backend.
type GenAIConfig struct {
	APIKey string
	// Model defaults to gemini-2.0-flash.
	Model string
}

// GenAI implements the text collaborators (classify, respond, plan) over the
// Gemini API. Audio stays on the OpenAI agent; this backend is chat only.
type GenAI struct {
	cfg    GenAIConfig
	client *genai.Client
	log    *slog.Logger
}

// NewGenAI creates the agent. The API key is required.
func NewGenAI(ctx context.Context, cfg GenAIConfig, log *slog.Logger) (*GenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("agents: genai api key is empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if log == nil {
		log = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("agents: genai client: %w", err)
	}
	return &GenAI{cfg: cfg, client: client, log: log.With("component", "agents")}, nil
}

func (a *GenAI) Classify(ctx context.Context, transcript string) (brain.Intent, error) {
	raw, err := a.generate(ctx, classifierPrompt, transcript, true)
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

func (a *GenAI) Respond(ctx context.Context, transcript string) (string, error) {
	reply, err := a.generate(ctx, responderPrompt, transcript, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (a *GenAI) Plan(ctx context.Context, transcript string) (*tools.Plan, error) {
	raw, err := a.generate(ctx, plannerPrompt, transcript, true)
	if err != nil {
		return nil, err
	}
	return tools.DecodePlan(raw)
}

// generate runs one turn with a system instruction and collects the text of
// the first candidate.
func (a *GenAI) generate(ctx context.Context, prompt, input string, jsonOut bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt}}},
	}
	if jsonOut {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := a.client.Models.GenerateContent(ctx, a.cfg.Model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: input}}},
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("agents: genai generate: %w", err)
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("agents: genai generate: empty response")
	}
	return sb.String(), nil
}
