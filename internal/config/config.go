// Package config provides unified configuration loading for the menu chatbot.
// Supports YAML files, .env files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/squareb/menu-chatbot/internal/domain"
)

// Config holds all configuration for the chatbot services.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Menu          MenuConfig          `yaml:"menu"`
	Engine        EngineConfig        `yaml:"engine"`
	LLM           LLMConfig           `yaml:"llm"`
	Session       SessionConfig       `yaml:"session"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	StaticDir        string        `yaml:"static_dir"`
}

// MenuConfig holds menu source and search settings.
type MenuConfig struct {
	Path                 string `yaml:"path"`
	Watch                bool   `yaml:"watch"`
	DefaultThreshold     int    `yaml:"default_threshold"`
	CurrencyLabel        string `yaml:"currency_label"`
	RestaurantName       string `yaml:"restaurant_name"`
	DefaultDeliveryPhone string `yaml:"default_delivery_phone"`
}

// EngineConfig holds conversation pipeline limits.
type EngineConfig struct {
	MaxContextItems int    `yaml:"max_context_items"`
	TopK            int    `yaml:"top_k"`
	MaxSuggestions  int    `yaml:"max_suggestions"`
	HistoryLimit    int    `yaml:"history_limit"`
	ModelHistory    int    `yaml:"model_history"`
	FallbackReply   string `yaml:"fallback_reply"`
}

// LLMConfig holds completion backend settings.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai, gemini or mock
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// SessionConfig holds session storage settings.
type SessionConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	ServiceName    string `yaml:"service_name"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// DefaultFallbackReply is returned to the customer when the completion call fails.
const DefaultFallbackReply = "عذراً، حدث خطأ في معالجة طلبك. الرجاء المحاولة مرة أخرى."

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}

		if cfg.Menu.Path != "" {
			cfg.Menu.Path = ResolveRelativePath(path, cfg.Menu.Path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Menu: MenuConfig{
			Path:                 "menu.txt",
			DefaultThreshold:     60,
			CurrencyLabel:        "دينار",
			RestaurantName:       "Square B",
			DefaultDeliveryPhone: "0797920111",
		},
		Engine: EngineConfig{
			MaxContextItems: 30,
			TopK:            5,
			MaxSuggestions:  3,
			HistoryLimit:    20,
			ModelHistory:    6,
			FallbackReply:   DefaultFallbackReply,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   500,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
			MaxRetries:  2,
		},
		Session: SessionConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "chatbot:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			ServiceName:    "menu-chatbot",
			MetricsEnabled: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return domain.ConfigError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}

	if c.Menu.Path == "" {
		return domain.ConfigError("menu path is required", nil)
	}

	if c.Menu.DefaultThreshold < 0 || c.Menu.DefaultThreshold > 100 {
		return domain.ConfigError("default_threshold must be between 0 and 100", nil)
	}

	if c.Engine.MaxContextItems < 1 {
		return domain.ConfigError("max_context_items must be positive", nil)
	}

	if c.Engine.TopK < 1 {
		return domain.ConfigError("top_k must be positive", nil)
	}

	if c.Engine.MaxSuggestions < 0 {
		return domain.ConfigError("max_suggestions must not be negative", nil)
	}

	if c.Engine.HistoryLimit < 2 {
		return domain.ConfigError("history_limit must hold at least one exchange", nil)
	}

	if c.Engine.ModelHistory < 0 {
		return domain.ConfigError("model_history must not be negative", nil)
	}

	if strings.TrimSpace(c.Engine.FallbackReply) == "" {
		return domain.ConfigError("fallback_reply must not be empty", nil)
	}

	switch c.LLM.Provider {
	case "openai", "gemini", "mock":
	default:
		return domain.ConfigError(fmt.Sprintf("invalid llm provider: %s", c.LLM.Provider), nil)
	}

	if c.LLM.MaxTokens < 1 {
		return domain.ConfigError("max_tokens must be positive", nil)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return domain.ConfigError("temperature must be between 0 and 2", nil)
	}

	if c.LLM.Timeout <= 0 {
		return domain.ConfigError("llm timeout must be positive", nil)
	}

	if c.Session.Driver != "memory" && c.Session.Driver != "redis" {
		return domain.ConfigError(fmt.Sprintf("invalid session driver: %s", c.Session.Driver), nil)
	}

	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("MENU_TXT"); v != "" {
		cfg.Menu.Path = v
	}

	if v := os.Getenv("DELIVERY_PHONE"); v != "" {
		cfg.Menu.DefaultDeliveryPhone = v
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.LLM.Provider == "gemini" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Session.Driver = "redis"
		cfg.Session.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
