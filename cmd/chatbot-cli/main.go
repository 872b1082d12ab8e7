// Package main provides the menu chatbot CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/squareb/menu-chatbot/internal/config"
	"github.com/squareb/menu-chatbot/internal/conversation"
	"github.com/squareb/menu-chatbot/internal/llm"
	"github.com/squareb/menu-chatbot/internal/menu"
	"github.com/squareb/menu-chatbot/internal/observability"
)

const version = "0.1.0"

// app carries global flags and the state PersistentPreRunE builds from them.
type app struct {
	cfgFile    string
	menuPath   string
	provider   string
	outputJSON bool
	noColor    bool
	verbose    bool

	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "chatbot-cli",
		Short: "Menu chatbot CLI for menu inspection and local conversations",
		Long: `Menu chatbot CLI works against the same menu file and pipeline as the API.

Use this tool to:
- Validate a menu file before deploying it
- Browse and fuzzy-search the menu
- See which intent and items a message would select
- Chat with the bot locally or replay a file of customer messages

All commands support --json for automation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	root.PersistentFlags().StringVarP(&a.menuPath, "menu", "m", "", "menu file path (overrides config)")
	root.PersistentFlags().StringVar(&a.provider, "provider", "", "completion provider: openai, gemini or mock (overrides config)")
	root.PersistentFlags().BoolVar(&a.outputJSON, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newMenuCmd(a))
	root.AddCommand(newClassifyCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newChatCmd(a))
	root.AddCommand(newReplayCmd(a))
	root.AddCommand(newVersionCmd(a))

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.menuPath != "" {
		cfg.Menu.Path = a.menuPath
	}
	if a.provider != "" {
		cfg.LLM.Provider = a.provider
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logFormat := "console"
	if a.outputJSON {
		logFormat = "json"
	}
	a.logger = observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      logFormat,
		Output:      cmd.ErrOrStderr(),
		ServiceName: "chatbot-cli",
	})

	a.ui = NewUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.outputJSON, a.noColor)
	return nil
}

// loadMenu parses the configured menu file.
func (a *app) loadMenu(ctx context.Context) (*menu.Store, *menu.Index, error) {
	store := menu.NewStore(menu.FileSource{Path: a.cfg.Menu.Path}, menu.WithLogger(a.logger))
	idx, err := store.Reload(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load menu %s: %w", a.cfg.Menu.Path, err)
	}
	return store, idx, nil
}

// newEngine builds the conversation pipeline the same way the API does.
func (a *app) newEngine(ctx context.Context, menus conversation.MenuProvider) (*conversation.Engine, error) {
	completer, err := llm.New(ctx, llm.Config{
		Provider:   a.cfg.LLM.Provider,
		BaseURL:    a.cfg.LLM.BaseURL,
		APIKey:     a.cfg.LLM.APIKey,
		Model:      a.cfg.LLM.Model,
		MaxRetries: a.cfg.LLM.MaxRetries,
		Timeout:    a.cfg.LLM.Timeout,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create completion backend: %w", err)
	}

	return conversation.NewEngine(menus, completer, conversation.EngineConfig{
		MaxTokens:      a.cfg.LLM.MaxTokens,
		Temperature:    a.cfg.LLM.Temperature,
		Timeout:        a.cfg.LLM.Timeout,
		HistoryLimit:   a.cfg.Engine.HistoryLimit,
		ModelHistory:   a.cfg.Engine.ModelHistory,
		MaxSuggestions: a.cfg.Engine.MaxSuggestions,
		FallbackReply:  a.cfg.Engine.FallbackReply,
		DefaultPhone:   a.cfg.Menu.DefaultDeliveryPhone,
	},
		conversation.WithLogger(a.logger),
		conversation.WithSelector(a.selector()),
		conversation.WithRenderer(conversation.NewContextRenderer(a.cfg.Menu.CurrencyLabel)),
		conversation.WithPromptBuilder(conversation.NewPromptBuilder(a.cfg.Menu.RestaurantName, a.cfg.Menu.CurrencyLabel)),
	), nil
}

func (a *app) selector() *conversation.Selector {
	return &conversation.Selector{
		MaxContextItems: a.cfg.Engine.MaxContextItems,
		TopK:            a.cfg.Engine.TopK,
		Threshold:       float64(a.cfg.Menu.DefaultThreshold),
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.outputJSON {
				return a.ui.JSON(map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chatbot-cli %s\n", version)
			return nil
		},
	}
}

func run(args []string, in io.Reader, out, errOut io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.Execute()
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
