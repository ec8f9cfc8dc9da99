package moderation

import (
	"context"
	"fmt"

	appconfig "go-gin-event-admission/config"
	"go-gin-event-admission/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// contentGenerator is the part of genai.Models the classifier calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClassifier struct {
	models contentGenerator
	model  string
}

func NewGeminiClassifier(ctx context.Context, cfg appconfig.GeminiConfig) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiClassifier(client.Models, cfg.Model), nil
}

func newGeminiClassifier(models contentGenerator, model string) *GeminiClassifier {
	return &GeminiClassifier{models: models, model: model}
}

// Classify returns the text of the first part of the first candidate. A
// response without text (blocked prompt, no candidates) is an empty answer,
// not an error: it parses as indeterminate. Only transport failures are errors.
func (g *GeminiClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0)
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		fields := []zap.Field{zap.String("model", g.model)}
		if resp != nil && resp.PromptFeedback != nil {
			fields = append(fields, zap.String("block_reason", string(resp.PromptFeedback.BlockReason)))
		}
		logger.WithComponent("moderation").Warn("classifier returned no text", fields...)
		return "", nil
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
