package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jude-e/backend/internal/client"
	"jude-e/backend/internal/model"
	"jude-e/backend/internal/session"
)

type options struct {
	server  string
	role    string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "judee",
		Short:         "Talk to the Jude-E assistant from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	server := os.Getenv("JUDEE_SERVER")
	if server == "" {
		server = "http://localhost:3001"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "chat server base URL (env JUDEE_SERVER)")
	root.PersistentFlags().StringVar(&opts.role, "role", string(model.RoleCaregiver), "audience: child or caregiver")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "per-question timeout, 0 for none")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newAskCmd(opts), newChatCmd(opts))
	return root
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the answer as it streams",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := session.New(model.ParseRole(opts.role))
			unsubscribe := sess.Subscribe(printAnswer(cmd.OutOrStdout()))
			defer unsubscribe()

			return ask(cmd.Context(), client.New(opts.server), sess, strings.Join(args, " "), opts.timeout)
		},
	}
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation.

Commands:
  /role child|caregiver   change the audience for the next questions
  /history                print the conversation so far
  /quit                   leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sess := session.New(model.ParseRole(opts.role))
			unsubscribe := sess.Subscribe(printAnswer(out))
			defer unsubscribe()

			c := client.New(opts.server)
			fmt.Fprintf(out, "%s (role: %s)\n", session.Greeting, sess.Role())
			return repl(cmd.Context(), cmd.InOrStdin(), out, sess, func(line string) {
				if err := ask(cmd.Context(), c, sess, line, opts.timeout); err != nil {
					slog.Debug("Question failed", "error", err)
				}
			})
		},
	}
}

// ask sends one question, bounded by timeout when it is positive.
func ask(ctx context.Context, c *client.Client, sess *session.Session, question string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.Send(ctx, sess, question)
}

func repl(ctx context.Context, in io.Reader, out io.Writer, sess *session.Session, send func(string)) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/history":
			for _, msg := range sess.History() {
				fmt.Fprintf(out, "[%s] %s\n", msg.Sender, msg.Content)
			}
		case strings.HasPrefix(line, "/role"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "/role"))
			if arg == "" {
				fmt.Fprintf(out, "Role: %s\n", sess.Role())
				continue
			}
			sess.SetRole(model.ParseRole(arg))
			fmt.Fprintf(out, "Role set to %s\n", sess.Role())
		case strings.HasPrefix(line, "/"):
			fmt.Fprintf(out, "Unknown command %q\n", line)
		default:
			send(line)
		}
	}
}

// printAnswer writes assistant output as it arrives.
func printAnswer(out io.Writer) func(session.Event) {
	return func(ev session.Event) {
		if ev.Message.Sender != session.SenderAssistant {
			return
		}
		switch ev.Kind {
		case session.EventDelta:
			fmt.Fprint(out, ev.Delta)
		case session.EventCompleted:
			fmt.Fprintln(out)
		case session.EventFailed:
			// A failure replaces any partial text, so start a fresh line.
			fmt.Fprintf(out, "\n%s\n", ev.Message.Content)
		}
	}
}
