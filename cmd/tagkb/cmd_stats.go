package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tagkb/internal/report"
)

var (
	statsLimit int
	statsTSV   bool
)

// statsCmd summarizes a relation file without updating anything
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show category-pair statistics of a relation file",
	Long: `Loads the knowledge base and the relation file, applies the same
filters as an update, and counts the remaining relations per category pair
and per destination tag. Nothing is written.

Example:
  tagkb stats --alias sample.alias --limit 10`,
	RunE: showStats,
}

func showStats(cmd *cobra.Command, args []string) error {
	sess, err := openSession(commandContext(cmd), activeConfig)
	if err != nil {
		return err
	}

	summary := report.Summarize(sess.store.Taxonomy, sess.rels)
	if statsTSV {
		return summary.WriteTSV(os.Stdout)
	}
	fmt.Print(summary.Render(statsLimit))
	return nil
}
