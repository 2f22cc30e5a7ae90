package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	app := newApp()

	rootCmd := &cobra.Command{
		Use:           "webim",
		Short:         "Webim visitor chat client",
		Long:          "webim talks to a Webim account as a chat visitor: send messages and files, page through history, watch a chat live and rate operators.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				app.logLevel.Set(slog.LevelDebug)
			}
			v := viper.New()
			if configPath != "" {
				v.SetConfigFile(configPath)
			}
			return app.wire(v, cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.webim/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log request loop activity to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSendCmd(app),
		newSendFileCmd(app),
		newTypingCmd(app),
		newStartCmd(app),
		newCloseCmd(app),
		newRateCmd(app),
		newHistoryCmd(app),
		newWatchCmd(app),
		newSessionCmd(app),
	)

	return rootCmd
}
