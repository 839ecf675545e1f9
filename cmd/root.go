package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ma",
		Short:         "Meeting assistant (ma): schedule meetings in conversation",
		Long:          "ma collects meeting details over a few conversational turns, checks your calendar for conflicts, asks for confirmation and books the event. Run it as a one-shot command, an interactive chat or an HTTP service.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	rootCmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		app.Close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newChatCmd(app),
		newSessionCmd(app),
		newServeCmd(app),
		newCalendarCmd(app),
		newVoiceCmd(app),
		newAuthCmd(app),
	)

	return rootCmd
}
