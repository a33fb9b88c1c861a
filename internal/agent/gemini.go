package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/caficafe-chat/internal/domain"
	"google.golang.org/genai"
)

var errEmptyModelResponse = errors.New("model returned no text")

// GeminiClient answers chat messages with a Gemini model.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a Gemini-backed responder.
func NewGeminiClient(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Info("Gemini client ready", "model", model)
	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

// Generate implements Responder.
func (g *GeminiClient) Generate(ctx context.Context, system string, history []domain.StoredMessage, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		switch m.Sender {
		case domain.SenderUser:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))
		case domain.SenderBot:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleModel))
		}
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errEmptyModelResponse
	}
	return text, nil
}

// Validate implements Responder.
func (g *GeminiClient) Validate(ctx context.Context) error {
	_, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText("Test prompt", genai.RoleUser)}, nil)
	if err != nil {
		return fmt.Errorf("validate model %s: %w", g.model, err)
	}
	return nil
}
