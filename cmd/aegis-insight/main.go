package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aegis-insight",
		Short:         "Answer manufacturing questions with OEE, downtime and quality analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newAskCommand())
	cmd.AddCommand(newClassifyCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newStatsCommand())
	cmd.AddCommand(newJournalCommand())
	return cmd
}
