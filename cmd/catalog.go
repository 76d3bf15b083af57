// Package cmd — catalog command.
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/structmark/core/store"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <catalog.db> [run-id]",
	Short: "List the documents of a catalogued run (default: the latest)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := store.Open(ctx, args[0])
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer s.Close()

	runID := "latest"
	if len(args) == 2 {
		runID = args[1]
	}
	if runID == "latest" {
		if runID, err = s.LatestRun(ctx); err != nil {
			return fmt.Errorf("finding latest run: %w", err)
		}
	}
	docs, err := s.Documents(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Run %s: %d documents\n\n", runID, len(docs))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tFORMAT\tRECORDS\tCONVERTED\tSOURCE")
	for _, d := range docs {
		status := d.Status
		if d.Error != "" {
			status += ": " + d.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", status, d.Format, d.Records, d.CreatedAt.Local().Format(time.DateTime), d.Source)
	}
	return tw.Flush()
}
