// Package main provides the chatbot API server entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/squareb/menu-chatbot/internal/cache"
	"github.com/squareb/menu-chatbot/internal/config"
	"github.com/squareb/menu-chatbot/internal/conversation"
	"github.com/squareb/menu-chatbot/internal/llm"
	"github.com/squareb/menu-chatbot/internal/menu"
	"github.com/squareb/menu-chatbot/internal/metrics"
	"github.com/squareb/menu-chatbot/internal/observability"
	"github.com/squareb/menu-chatbot/internal/session"
)

func main() {
	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("menu", cfg.Menu.Path).
		Str("llm_provider", cfg.LLM.Provider).
		Str("session_driver", cfg.Session.Driver).
		Msg("Starting menu chatbot API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Menu
	store := menu.NewStore(menu.FileSource{Path: cfg.Menu.Path},
		menu.WithLogger(logger),
		menu.WithReloadHook(func(idx *menu.Index, err error, _ time.Duration) {
			items := 0
			if idx != nil {
				items = idx.Len()
			}
			metrics.ObserveReload(items, err)
		}),
	)
	if _, err := store.Reload(ctx); err != nil {
		logger.Error().Err(err).Msg("Initial menu load failed; chat will answer without menu items until a reload succeeds")
	}

	if cfg.Menu.Watch {
		watcher := menu.NewWatcher(store, cfg.Menu.Path, 0, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Menu watcher stopped")
			}
		}()
	}

	// Completion backend
	completer, err := llm.New(ctx, llm.Config{
		Provider:   cfg.LLM.Provider,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		MaxRetries: cfg.LLM.MaxRetries,
		Timeout:    cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create completion backend")
	}

	// Sessions
	var (
		backend     cache.Client
		broadcaster *ReloadBroadcaster
	)
	switch cfg.Session.Driver {
	case "redis":
		redisClient, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
			PoolSize: cfg.Session.Redis.PoolSize,
			Prefix:   cfg.Session.Redis.Prefix,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Session.Redis.Addr).Msg("Failed to connect to Redis")
		}
		backend = redisClient
		broadcaster = NewReloadBroadcaster(redisClient, store, logger)
		go func() {
			if err := broadcaster.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Menu reload subscription stopped")
			}
		}()
	default:
		backend = cache.NewMemoryClient(cfg.Session.MaxEntries)
	}
	defer backend.Close()

	sessions := session.NewStore(backend, cfg.Session.TTL)

	engine := conversation.NewEngine(store, completer, conversation.EngineConfig{
		MaxTokens:      cfg.LLM.MaxTokens,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        cfg.LLM.Timeout,
		HistoryLimit:   cfg.Engine.HistoryLimit,
		ModelHistory:   cfg.Engine.ModelHistory,
		MaxSuggestions: cfg.Engine.MaxSuggestions,
		FallbackReply:  cfg.Engine.FallbackReply,
		DefaultPhone:   cfg.Menu.DefaultDeliveryPhone,
	},
		conversation.WithLogger(logger),
		conversation.WithSelector(&conversation.Selector{
			MaxContextItems: cfg.Engine.MaxContextItems,
			TopK:            cfg.Engine.TopK,
			Threshold:       float64(cfg.Menu.DefaultThreshold),
		}),
		conversation.WithRenderer(conversation.NewContextRenderer(cfg.Menu.CurrencyLabel)),
		conversation.WithPromptBuilder(conversation.NewPromptBuilder(cfg.Menu.RestaurantName, cfg.Menu.CurrencyLabel)),
	)

	svc := &Services{
		Menus:    store,
		Engine:   engine,
		Sessions: sessions,
		Locker:   session.NewLocker(),
	}
	if broadcaster != nil {
		svc.OnReload = broadcaster.Announce
	}

	appCfg := &AppConfig{
		ServiceName:      cfg.Observability.ServiceName,
		RestaurantName:   cfg.Menu.RestaurantName,
		RequestTimeout:   cfg.Server.WriteTimeout,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		StaticDir:        cfg.Server.StaticDir,
		DefaultThreshold: float64(cfg.Menu.DefaultThreshold),
		MetricsEnabled:   cfg.Observability.MetricsEnabled,
	}

	// Create server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      NewRouter(logger, appCfg, svc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt or error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server error")
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}
	cancel()

	logger.Info().Msg("Server stopped")
}
