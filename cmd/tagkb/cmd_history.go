package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tagkb/internal/store"
)

var historyLimit int

// historyCmd lists the runs recorded in the ledger
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded update runs",
	Long: `Lists the runs recorded in the SQLite ledger configured with
store.database_path (or TAGKB_DB), newest first.`,
	RunE: showHistory,
}

func showHistory(cmd *cobra.Command, args []string) error {
	path := activeConfig.Store.DatabasePath
	if path == "" {
		fmt.Println("No run ledger configured (set store.database_path or TAGKB_DB)")
		return nil
	}

	ledger, err := store.Open(path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	runs, err := ledger.ListRuns(commandContext(cmd), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	for _, r := range runs {
		status := "open"
		if !r.FinishedAt.IsZero() {
			status = r.FinishedAt.Sub(r.StartedAt).String()
		}
		fmt.Printf("%s  %s  %s  n=%d t=%.2f  kept=%d/%d  passes=%d aliases=%d tags=%d expansions=%d unresolved=%d  (%s)\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Input, r.MinJointCount, r.MinRatio, r.Load.Kept, r.Load.Records,
			r.Stats.Passes, r.Stats.Aliases, r.Stats.TagsAdded, r.Stats.Expansions, r.Stats.Unresolved, status)
	}
	return nil
}
