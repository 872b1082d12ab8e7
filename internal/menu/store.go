package menu

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/squareb/menu-chatbot/internal/domain"
	"github.com/squareb/menu-chatbot/internal/observability"
)

// ErrNotLoaded is returned by Store.Current before the first successful load.
var ErrNotLoaded = errors.New("menu not loaded")

// Source supplies raw menu text.
type Source interface {
	Read(ctx context.Context) (string, error)
	Name() string
}

// FileSource reads the menu from a text file.
type FileSource struct {
	Path string
}

// Read returns the file contents.
func (f FileSource) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read menu file: %w", err)
	}
	return string(data), nil
}

// Name identifies the source in logs.
func (f FileSource) Name() string {
	return f.Path
}

// StaticSource serves a fixed menu text.
type StaticSource string

// Read returns the text.
func (s StaticSource) Read(context.Context) (string, error) {
	return string(s), nil
}

// Name identifies the source in logs.
func (s StaticSource) Name() string {
	return "static"
}

// ReloadHook observes every reload attempt.
type ReloadHook func(idx *Index, err error, elapsed time.Duration)

// Store holds the live Index and swaps it atomically on reload.
type Store struct {
	source Source
	parser *Parser
	logger *observability.Logger
	hooks  []ReloadHook

	current atomic.Pointer[Index]
	group   singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithParser overrides the default parser.
func WithParser(p *Parser) StoreOption {
	return func(s *Store) { s.parser = p }
}

// WithLogger sets the store logger.
func WithLogger(l *observability.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithReloadHook registers a callback run after every reload attempt.
func WithReloadHook(h ReloadHook) StoreOption {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

// NewStore creates a Store over source. Call Reload to load the first index.
func NewStore(source Source, opts ...StoreOption) *Store {
	s := &Store{
		source: source,
		parser: NewParser(ParserConfig{}),
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the live index.
func (s *Store) Current() (*Index, error) {
	idx := s.current.Load()
	if idx == nil {
		return nil, ErrNotLoaded
	}
	return idx, nil
}

// Reload rebuilds the index from the source. On failure the previous index
// stays live and the error is returned. Concurrent calls share one rebuild.
func (s *Store) Reload(ctx context.Context) (*Index, error) {
	v, err, _ := s.group.Do("reload", func() (interface{}, error) {
		return s.reload(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

func (s *Store) reload(ctx context.Context) (*Index, error) {
	start := time.Now()
	log := s.logger.WithOperation("menu_reload")

	idx, err := s.build(ctx)
	elapsed := time.Since(start)
	for _, h := range s.hooks {
		h(idx, err, elapsed)
	}

	if err != nil {
		log.Error().
			Err(err).
			Str("source", s.source.Name()).
			Bool("kept_previous", s.current.Load() != nil).
			Msg("Menu reload failed")
		return nil, err
	}

	s.current.Store(idx)

	stats := idx.Stats()
	log.Info().
		Str("source", s.source.Name()).
		Int("items", stats.Items).
		Int("categories", stats.Categories).
		Int("skipped", stats.Skipped).
		Dur("elapsed", elapsed).
		Msg("Menu loaded")
	for _, w := range idx.Warnings() {
		log.Warn().Int("line", w.Line).Str("reason", w.Reason).Str("text", w.Text).Msg("Menu line skipped")
	}

	return idx, nil
}

func (s *Store) build(ctx context.Context) (*Index, error) {
	raw, err := s.source.Read(ctx)
	if err != nil {
		return nil, domain.ParseError("read menu source", err)
	}
	return s.parser.Parse(raw)
}
