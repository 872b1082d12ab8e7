package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/squareb/menu-chatbot/internal/conversation"
)

// turnView is the JSON shape of one answered message.
type turnView struct {
	Message     string     `json:"message"`
	Intent      string     `json:"intent"`
	Reply       string     `json:"reply"`
	Fallback    bool       `json:"fallback"`
	Suggestions []itemView `json:"suggestions"`
}

func newTurnView(message string, reply conversation.Reply) turnView {
	return turnView{
		Message:     message,
		Intent:      string(reply.Intent),
		Reply:       reply.Text,
		Fallback:    reply.Fallback,
		Suggestions: toItemViews(reply.Suggestions),
	}
}

// newChatCmd creates the interactive chat subcommand.
func newChatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot in the terminal",
		Long: `Chat starts a local conversation using the configured menu and completion
provider. Use --provider mock to try the pipeline without an API key.

Type /reset to start a new session and /exit to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, _, err := a.loadMenu(ctx)
			if err != nil {
				return err
			}
			engine, err := a.newEngine(ctx, store)
			if err != nil {
				return err
			}

			sess := conversation.NewSession(uuid.NewString())
			a.ui.Info("%s menu loaded. Session %s", a.cfg.Menu.RestaurantName, sess.ID)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				a.ui.Prompt()
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/exit", "/quit":
					return nil
				case "/reset":
					sess = conversation.NewSession(uuid.NewString())
					a.ui.Info("New session %s", sess.ID)
					continue
				}

				reply, err := a.respond(ctx, engine, sess, line)
				if err != nil {
					return err
				}
				if a.outputJSON {
					if err := a.ui.JSON(newTurnView(line, reply)); err != nil {
						return err
					}
					continue
				}
				a.ui.Reply(reply.Text)
				if a.verbose {
					a.ui.KeyValue("intent", reply.Intent)
					for _, it := range reply.Suggestions {
						a.ui.KeyValue("suggested", fmt.Sprintf("%s (%s)", it.Name, it.DisplayPrice()))
					}
				}
			}
			return scanner.Err()
		},
	}

	return cmd
}

func (a *app) respond(ctx context.Context, engine *conversation.Engine, sess *conversation.Session, message string) (conversation.Reply, error) {
	var reply conversation.Reply
	err := a.ui.Spinner("thinking", func() error {
		var err error
		reply, err = engine.Respond(ctx, sess, message)
		return err
	})
	return reply, err
}

// newReplayCmd creates the replay subcommand.
func newReplayCmd(a *app) *cobra.Command {
	var (
		file     string
		isolated bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a file of customer messages through the bot",
		Long: `Replay sends each non-empty line of a file through the chatbot pipeline and
reports the detected intent and reply. Lines starting with # are ignored.

By default all lines share one session, like a single customer conversation.
Use --isolated to start a fresh session for every line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			messages, err := readMessages(file)
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				return fmt.Errorf("no messages in %s", file)
			}

			store, _, err := a.loadMenu(ctx)
			if err != nil {
				return err
			}
			engine, err := a.newEngine(ctx, store)
			if err != nil {
				return err
			}

			bar := a.ui.ProgressBar(len(messages), "replaying")
			sess := conversation.NewSession(uuid.NewString())
			turns := make([]turnView, 0, len(messages))
			fallbacks := 0
			for _, msg := range messages {
				if isolated {
					sess = conversation.NewSession(uuid.NewString())
				}
				reply, err := engine.Respond(ctx, sess, msg)
				if err != nil {
					return fmt.Errorf("message %q: %w", msg, err)
				}
				if reply.Fallback {
					fallbacks++
				}
				turns = append(turns, newTurnView(msg, reply))
				bar.Add()
			}
			bar.Finish()

			if a.outputJSON {
				return a.ui.JSON(map[string]interface{}{
					"messages":  len(turns),
					"fallbacks": fallbacks,
					"turns":     turns,
				})
			}

			rows := make([][]string, 0, len(turns))
			for i, t := range turns {
				rows = append(rows, []string{
					fmt.Sprint(i + 1),
					truncate(t.Message, 30),
					t.Intent,
					fmt.Sprint(len(t.Suggestions)),
					truncate(t.Reply, 50),
				})
			}
			a.ui.Table([]string{"#", "Message", "Intent", "Items", "Reply"}, rows)
			if fallbacks > 0 {
				a.ui.Warning("%d of %d messages fell back", fallbacks, len(turns))
			} else {
				a.ui.Success("%d messages answered", len(turns))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one customer message per line")
	cmd.Flags().BoolVar(&isolated, "isolated", false, "use a fresh session for every message")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readMessages(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open messages: %w", err)
	}
	defer f.Close()

	var messages []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		messages = append(messages, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return messages, nil
}
