// Package llm provides chat-completion backends behind a single Completer
// interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/squareb/menu-chatbot/internal/observability"
)

var (
	// ErrTimeout is returned when the completion call exceeds its deadline.
	ErrTimeout = errors.New("completion timed out")
	// ErrEmptyCompletion is returned when the model answers with no text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrMalformedResponse is returned when the response cannot be decoded.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Request is a provider-neutral completion request.
type Request struct {
	System      string
	History     []Message
	User        string
	MaxTokens   int
	Temperature float64
}

// Completer produces the assistant reply for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider   string // openai, gemini or mock
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// New builds the Completer named by cfg.Provider.
func New(ctx context.Context, cfg Config, logger *observability.Logger) (Completer, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	switch cfg.Provider {
	case "openai", "":
		client, err := NewOpenAIClient(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
			Retry:      &RetryConfig{MaxRetries: cfg.MaxRetries, InitialBackoff: initialBackoff, MaxBackoff: maxBackoff},
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// classifyContextErr maps deadline errors onto ErrTimeout.
func classifyContextErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
