package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnomandev/gnoman/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Poll the explorer for the safe's transactions and log them",
	Long: `Track reads the persisted safe state, then polls the explorer's txlist
endpoint on a timer and writes the results to the tx log file. It stops on
interrupt or on the first failed poll; there are no automatic retries.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return tracker.NewDefault().Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
