package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	app := &app{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "beright",
		Short:         "beright: credit broker and staged debate analysis service",
		Long:          "beright meters conversations per device with a daily free grant and paid credits, reconciles card payments exactly once, and runs the staged analysis pipeline behind an HTTP gateway.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.load(configFile)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return app.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: $HOME/.beright/config.toml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newCreditsCmd(app),
		newPaymentsCmd(app),
		newAnalyzeCmd(app),
		newTranscribeCmd(app),
		newSessionsCmd(app),
		newSecretsCmd(app),
	)

	return rootCmd
}
