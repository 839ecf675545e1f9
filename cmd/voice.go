package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/meeting-assistant-cli/internal/application"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

const audioFileMode = 0o644

func newVoiceCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Speech input and output for the assistant",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if app.voice == nil {
				return errSpeechUnavailable
			}
			return nil
		},
	}

	cmd.AddCommand(newVoiceTranscribeCmd(app), newVoiceSpeakCmd(app), newVoiceTurnCmd(app))

	return cmd
}

func newVoiceTranscribeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Print the text spoken in an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open audio: %w", err)
			}
			defer audio.Close()

			text, err := app.voice.Transcribe(cmd.Context(), audio, args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newVoiceSpeakCmd(app *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "speak <text...>",
		Short: "Synthesize text to an MP3 file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := app.voice.Speak(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, audio, audioFileMode); err != nil {
				return fmt.Errorf("write audio: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(audio))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "reply.mp3", "Where to write the audio")

	return cmd
}

func newVoiceTurnCmd(app *app) *cobra.Command {
	var sessionID string
	var output string

	cmd := &cobra.Command{
		Use:   "turn <audio-file>",
		Short: "Run a spoken message as a conversation turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open audio: %w", err)
			}
			defer audio.Close()

			result, err := app.voice.Turn(cmd.Context(), application.VoiceTurnCommand{
				Audio:     audio,
				Filename:  args[0],
				SessionID: domain.SessionID(strings.TrimSpace(sessionID)),
				Speak:     output != "",
			})
			if result.Transcript != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "heard: %s\n", result.Transcript)
			}
			if result.Turn.SessionID != "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Turn.Reply)
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", result.Turn.SessionID)
			}
			if err != nil {
				return err
			}

			if len(result.Audio) > 0 {
				if err := os.WriteFile(output, result.Audio, audioFileMode); err != nil {
					return fmt.Errorf("write audio: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to continue")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Also speak the reply into this MP3 file")

	return cmd
}
