package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/squareb/menu-chatbot/internal/domain"
	"github.com/squareb/menu-chatbot/internal/observability"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient calls Google Gemini through the GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *observability.Logger
}

// NewGeminiClient creates a Gemini backend. An API key is required.
func NewGeminiClient(ctx context.Context, apiKey, model string, logger *observability.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, domain.ConfigError("GEMINI_API_KEY is required for the gemini provider", nil)
	}
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultGeminiModel
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, domain.ConfigError("create GenAI client", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger.WithOperation("completion"),
	}, nil
}

// Complete sends the conversation to Gemini and returns the reply text.
func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.User, genai.RoleUser))

	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(req.MaxTokens),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", domain.CompletionError("gemini generate content", classifyContextErr(ctx, err))
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", domain.CompletionError("gemini generate content", ErrEmptyCompletion)
	}

	g.logger.Debug().Str("model", g.model).Int("chars", len(text)).Msg("Completion received")
	return text, nil
}
