package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/squareb/menu-chatbot/internal/domain"
	"github.com/squareb/menu-chatbot/internal/observability"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-3.5-turbo"
)

// OpenAIConfig configures an OpenAI-compatible chat-completions client.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Retry      *RetryConfig
}

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint
// (OpenAI, OpenRouter, local gateways).
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	retry      *RetryConfig
	logger     *observability.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a client. An API key is required.
func NewOpenAIClient(cfg OpenAIConfig, logger *observability.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("OPENAI_API_KEY is required for the openai provider", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Retry == nil {
		cfg.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &OpenAIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
		retry:      cfg.Retry,
		logger:     logger.WithOperation("completion"),
	}, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete sends the request and returns the first choice's text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", domain.CompletionError("marshal request", err)
	}

	url := c.baseURL + "/chat/completions"
	resp, err := retryWithBackoff(ctx, c.retry, c.logger, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return "", domain.CompletionError("send request", classifyContextErr(ctx, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.CompletionError("read response", classifyContextErr(ctx, err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.CompletionError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncate(string(data), 200)), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", domain.CompletionError("decode response", fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if parsed.Error != nil {
		return "", domain.CompletionError("API error: "+parsed.Error.Message, ErrMalformedResponse)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.CompletionError("decode response", fmt.Errorf("%w: no choices", ErrMalformedResponse))
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", domain.CompletionError("decode response", ErrEmptyCompletion)
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("finish_reason", parsed.Choices[0].FinishReason).
		Int("chars", len(text)).
		Msg("Completion received")

	return text, nil
}

func (c *OpenAIClient) buildRequest(req Request) chatRequest {
	messages := make([]chatMessage, 0, len(req.History)+2)
	messages = append(messages, chatMessage{Role: string(RoleSystem), Content: req.System})
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: string(RoleUser), Content: req.User})

	return chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
