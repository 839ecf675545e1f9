package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/meeting-assistant-cli/internal/application"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

const replPrompt = "> "

type chatOptions struct {
	sessionID string
	asJSON    bool
	quiet     bool
}

func newChatCmd(app *app) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Talk to the assistant; without a message, start an interactive session",
		Example: `  ma chat "Schedule a meeting with John on Friday"
  ma chat --session 3f0c... "at 3pm for an hour"
  ma chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				_, err := chatTurn(cmd, app, opts, strings.Join(args, " "))
				return err
			}

			return chatREPL(cmd, app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Session ID to continue (a new session is created when empty)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print each turn as JSON")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Do not show the progress spinner")

	return cmd
}

// chatTurn runs one turn and prints it. It returns the session the turn was applied to.
func chatTurn(cmd *cobra.Command, app *app, opts chatOptions, prompt string) (string, error) {
	var result application.TurnResult
	work := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, app.config.HTTP.TurnTimeout)
		defer cancel()

		var err error
		result, err = app.conversation.HandleTurn(ctx, application.HandleTurnCommand{
			Prompt:    prompt,
			SessionID: domain.SessionID(strings.TrimSpace(opts.sessionID)),
		})
		return err
	}

	var err error
	if opts.asJSON || opts.quiet {
		err = work(cmd.Context())
	} else {
		err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Thinking...", work)
	}
	if err != nil {
		return "", err
	}

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		return string(result.SessionID), enc.Encode(application.NewTurnView(result, app.conversation.Location()))
	}

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), result.Reply); err != nil {
		return "", err
	}
	if opts.sessionID == "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "session: %s (continue with --session %s)\n", result.SessionID, result.SessionID)
	}

	return string(result.SessionID), nil
}

func chatREPL(cmd *cobra.Command, app *app, opts chatOptions) error {
	out := cmd.OutOrStdout()
	if !opts.asJSON {
		_, _ = fmt.Fprintln(out, "Tell me about the meeting you want to schedule. Type exit to leave.")
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if !opts.asJSON {
			_, _ = fmt.Fprint(out, replPrompt)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "/exit", "/quit":
			return nil
		}

		sessionID, err := chatTurn(cmd, app, opts, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		// Later turns continue this session, so the id hint is printed once.
		opts.sessionID = sessionID
	}
}
