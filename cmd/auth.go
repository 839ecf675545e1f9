package cmd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bnema/meeting-assistant-cli/internal/application"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the OpenAI API key",
	}

	cmd.AddCommand(newAuthSetCmd(app), newAuthDeleteCmd(app), newAuthStatusCmd(app))

	return cmd
}

func newAuthSetCmd(app *app) *cobra.Command {
	var value string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the OpenAI API key in the secret store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("read key from stdin: %w", err)
				}
				value = line
			}

			err := app.credentials.SetSecret(cmd.Context(), application.SetSecretCommand{
				Ref:   app.config.LLM.APIKeyRef,
				Value: value,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored API key under %s\n", app.config.LLM.APIKeyRef)
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "API key value")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the API key from stdin")
	cmd.MarkFlagsOneRequired("value", "stdin")
	cmd.MarkFlagsMutuallyExclusive("value", "stdin")

	return cmd
}

func newAuthDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored OpenAI API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.credentials.RemoveSecret(cmd.Context(), app.config.LLM.APIKeyRef); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed API key %s\n", app.config.LLM.APIKeyRef)
			return nil
		},
	}
}

func newAuthStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether an API key is stored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stored, err := app.credentials.HasSecret(cmd.Context(), app.config.LLM.APIKeyRef)
			if err != nil {
				return err
			}

			state := "not stored"
			if stored {
				state = "stored"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "api key: %s\n", state)
			return nil
		},
	}
}
