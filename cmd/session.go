package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/meeting-assistant-cli/internal/adapters/render/session"
	"github.com/bnema/meeting-assistant-cli/internal/application"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

type sessionListExport struct {
	Sessions []application.SessionSummary `json:"sessions" yaml:"sessions" toml:"sessions"`
}

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Inspect and purge stored conversations",
	}

	cmd.AddCommand(newSessionListCmd(app), newSessionShowCmd(app), newSessionPurgeCmd(app))

	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	var rawFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(rawFormat)
			if err != nil {
				return err
			}

			summaries, err := app.conversation.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			if format != formatText {
				if summaries == nil {
					summaries = []application.SessionSummary{}
				}
				return writeStructured(cmd.OutOrStdout(), format, sessionListExport{Sessions: summaries})
			}

			rendered, err := app.renderList(summaries, session.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render sessions: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&rawFormat, "format", formatText, "Output format (text|json|yaml|toml)")

	return cmd
}

func newSessionShowCmd(app *app) *cobra.Command {
	var rawFormat string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(rawFormat)
			if err != nil {
				return err
			}

			stored, err := app.conversation.GetSession(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}
			detail := application.NewSessionDetail(stored, app.conversation.Location())

			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, detail)
			}

			rendered, err := app.renderDetail(detail, session.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render session: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&rawFormat, "format", formatText, "Output format (text|json|yaml|toml)")

	return cmd
}

func newSessionPurgeCmd(app *app) *cobra.Command {
	var idleAfter time.Duration

	cmd := &cobra.Command{
		Use:   "purge [session-id]",
		Short: "Delete one session, or every session idle for longer than --idle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1 && idleAfter > 0:
				return errors.New("pass either a session id or --idle, not both")
			case len(args) == 1:
				if err := app.conversation.PurgeSession(cmd.Context(), domain.SessionID(args[0])); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Purged session %s\n", args[0])
				return nil
			case idleAfter > 0:
				purged, err := app.conversation.PurgeIdleSessions(cmd.Context(), idleAfter)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d idle sessions\n", len(purged))
				return nil
			default:
				return errors.New("purge requires a session id or --idle")
			}
		},
	}

	cmd.Flags().DurationVar(&idleAfter, "idle", 0, "Purge sessions idle for longer than this (e.g. 24h)")

	return cmd
}
