package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghalamif/AegisInsight/internal/adapters/journal"
	"github.com/ghalamif/AegisInsight/internal/domain"
)

func newJournalCommand() *cobra.Command {
	var (
		dir    string
		commit bool
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print results in the journal that have not been read yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.Open(dir)
			if err != nil {
				return err
			}
			defer j.Close()

			var last journal.EntryID
			err = j.Pending(func(id journal.EntryID, r domain.AnalysisResult) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s [%s] confidence=%.2f\n", id, r.ID, r.AnalysisType, r.Tier, r.Confidence)
				last = id
				return nil
			})
			if err != nil {
				return err
			}
			if commit && last > 0 {
				return j.Commit(last)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./data/journal", "Journal directory")
	cmd.Flags().BoolVar(&commit, "commit", false, "Advance the read cursor past the printed results")
	return cmd
}
