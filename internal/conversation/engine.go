package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/squareb/menu-chatbot/internal/domain"
	"github.com/squareb/menu-chatbot/internal/llm"
	"github.com/squareb/menu-chatbot/internal/menu"
	"github.com/squareb/menu-chatbot/internal/metrics"
	"github.com/squareb/menu-chatbot/internal/observability"
)

// Engine defaults.
const (
	DefaultMaxTokens      = 500
	DefaultTemperature    = 0.7
	DefaultTimeout        = 30 * time.Second
	DefaultModelHistory   = 6
	DefaultMaxSuggestions = 3
	DefaultFallbackReply  = "عذراً، حدث خطأ في معالجة طلبك. الرجاء المحاولة مرة أخرى."
)

// MenuProvider yields the menu index in service.
type MenuProvider interface {
	Current() (*menu.Index, error)
}

// EngineConfig holds the per-message limits of the engine.
type EngineConfig struct {
	MaxTokens      int
	Temperature    float64
	Timeout        time.Duration
	HistoryLimit   int
	ModelHistory   int
	MaxSuggestions int
	FallbackReply  string
	// DefaultPhone is used when the menu declares no delivery number.
	DefaultPhone string
}

// DefaultEngineConfig returns the stock limits.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxTokens:      DefaultMaxTokens,
		Temperature:    DefaultTemperature,
		Timeout:        DefaultTimeout,
		HistoryLimit:   DefaultHistoryLimit,
		ModelHistory:   DefaultModelHistory,
		MaxSuggestions: DefaultMaxSuggestions,
		FallbackReply:  DefaultFallbackReply,
	}
}

// Reply is the engine's answer to one message.
type Reply struct {
	Text        string
	Suggestions []menu.Item
	Intent      Intent
	// Fallback is set when the completion failed and Text is the apology.
	Fallback bool
}

// Engine answers customer messages from the menu and a completion backend.
// It is safe for concurrent use; callers serialize calls per session.
type Engine struct {
	menus      MenuProvider
	completer  llm.Completer
	classifier *IntentClassifier
	selector   *Selector
	renderer   *ContextRenderer
	prompts    *PromptBuilder
	config     EngineConfig
	logger     *observability.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClassifier replaces the intent rules.
func WithClassifier(c *IntentClassifier) EngineOption {
	return func(e *Engine) { e.classifier = c }
}

// WithSelector replaces the item selector.
func WithSelector(s *Selector) EngineOption {
	return func(e *Engine) { e.selector = s }
}

// WithRenderer replaces the context renderer.
func WithRenderer(r *ContextRenderer) EngineOption {
	return func(e *Engine) { e.renderer = r }
}

// WithPromptBuilder replaces the system prompt builder.
func WithPromptBuilder(p *PromptBuilder) EngineOption {
	return func(e *Engine) { e.prompts = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *observability.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine. Unset limits take the defaults; a zero
// ModelHistory or MaxSuggestions disables history or suggestions.
func NewEngine(menus MenuProvider, completer llm.Completer, cfg EngineConfig, opts ...EngineOption) *Engine {
	def := DefaultEngineConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.ModelHistory < 0 {
		cfg.ModelHistory = def.ModelHistory
	}
	if cfg.MaxSuggestions < 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	if strings.TrimSpace(cfg.FallbackReply) == "" {
		cfg.FallbackReply = def.FallbackReply
	}

	e := &Engine{
		menus:      menus,
		completer:  completer,
		classifier: defaultClassifier,
		selector:   NewSelector(),
		renderer:   NewContextRenderer(""),
		prompts:    NewPromptBuilder("", ""),
		config:     cfg,
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithOperation("respond")
	return e
}

// Classify returns the intent of message.
func (e *Engine) Classify(message string) Intent {
	return e.classifier.Classify(message)
}

// Prepare runs every step before the completion call and returns the
// intent, the selected items and the system prompt.
func (e *Engine) Prepare(message string) (Intent, []menu.Item, string) {
	intent := e.classifier.Classify(message)

	idx, err := e.menus.Current()
	if err != nil {
		e.logger.Warn().Err(err).Msg("Menu unavailable, answering without items")
		idx = nil
	}

	items := e.selector.Select(idx, message, intent)

	phone := e.config.DefaultPhone
	if idx != nil && idx.DeliveryPhone() != "" {
		phone = idx.DeliveryPhone()
	}

	system := e.prompts.Build(e.renderer.Render(intent, items, phone))
	return intent, items, system
}

// Respond answers message within sess. Completion failures are absorbed: the
// reply is the fallback text, there are no suggestions and the history is
// left as it was. The only error is a blank message.
func (e *Engine) Respond(ctx context.Context, sess *Session, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, domain.ValidationError("message is required", nil)
	}

	intent, items, system := e.Prepare(message)
	metrics.MessagesTotal.WithLabelValues(string(intent)).Inc()
	metrics.SelectedItems.WithLabelValues(string(intent)).Observe(float64(len(items)))

	log := e.logger.WithSession(sess.ID)
	log.Debug().
		Str("intent", string(intent)).
		Int("items", len(items)).
		Msg("Message classified")

	cctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := e.completer.Complete(cctx, llm.Request{
		System:      system,
		History:     sess.Recent(e.config.ModelHistory),
		User:        message,
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	})
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = llm.ErrEmptyCompletion
	}
	metrics.ObserveCompletion(time.Since(start), err)

	if err != nil {
		reason := failureReason(cctx, err)
		metrics.FallbacksTotal.WithLabelValues(reason).Inc()
		log.Warn().
			Err(err).
			Str("intent", string(intent)).
			Str("reason", reason).
			Dur("elapsed", time.Since(start)).
			Msg("Completion failed, sending fallback reply")
		return Reply{
			Text:        e.config.FallbackReply,
			Suggestions: []menu.Item{},
			Intent:      intent,
			Fallback:    true,
		}, nil
	}

	now := time.Now().UTC()
	sess.Append(e.config.HistoryLimit,
		Turn{Role: llm.RoleUser, Text: message, At: now},
		Turn{Role: llm.RoleAssistant, Text: text, At: now},
	)

	n := min(len(items), e.config.MaxSuggestions)
	suggestions := append([]menu.Item{}, items[:n]...)

	log.Info().
		Str("intent", string(intent)).
		Int("suggestions", len(suggestions)).
		Dur("elapsed", time.Since(start)).
		Msg("Reply sent")

	return Reply{
		Text:        text,
		Suggestions: suggestions,
		Intent:      intent,
	}, nil
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return metrics.ReasonTimeout
	case errors.Is(err, llm.ErrEmptyCompletion):
		return metrics.ReasonEmpty
	case errors.Is(err, llm.ErrMalformedResponse):
		return metrics.ReasonMalformed
	default:
		return metrics.ReasonTransport
	}
}

// SelectItems picks items for intent with the default caps.
func SelectItems(idx *menu.Index, message string, intent Intent) []menu.Item {
	return NewSelector().Select(idx, message, intent)
}

// BuildContext renders items with the default currency and no contact line.
func BuildContext(intent Intent, items []menu.Item) string {
	return NewContextRenderer("").Render(intent, items, "")
}

// BuildSystemPrompt returns the default system prompt around menuContext.
func BuildSystemPrompt(menuContext string) string {
	return NewPromptBuilder("", "").Build(menuContext)
}
