// Package cmd — fuse command.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/structmark/core/fuse"
	"github.com/gaurav-prasanna/structmark/core/label"
	"github.com/gaurav-prasanna/structmark/core/metrics"
	"github.com/gaurav-prasanna/structmark/core/output"
)

var flagFuseOutput string

var fuseCmd = &cobra.Command{
	Use:   "fuse <markdown> <spans.json>",
	Short: "Insert structural markup for precomputed spans into Markdown",
	Long: `Fuse reads canonical Markdown and a span file (a JSON array or an
{"entities": [...]} object of {start, end, label}) and writes the labeled
Markdown to <base>_labeled.md, or to --output ("-" for stdout).`,
	Args: cobra.ExactArgs(2),
	RunE: runFuse,
}

func init() {
	rootCmd.AddCommand(fuseCmd)
	fuseCmd.Flags().StringVarP(&flagFuseOutput, "output", "o", "", "Output path, - for stdout (default: <base>_labeled.md)")
}

func runFuse(cmd *cobra.Command, args []string) error {
	textPath, spansPath := args[0], args[1]

	text, err := os.ReadFile(textPath)
	if err != nil {
		return fmt.Errorf("reading text: %w", err)
	}
	spans, err := label.LoadFile(spansPath)
	if err != nil {
		return err
	}
	table, err := cfg.MarkupTable()
	if err != nil {
		return err
	}

	labeled, st := fuse.New(table, logger).FuseStats(string(text), spans)
	metrics.Spans(st.Applied, st.PassThrough, st.Dropped)
	logger.Info("fused spans", "applied", st.Applied, "pass_through", st.PassThrough, "dropped", st.Dropped)

	dest := flagFuseOutput
	if dest == "" {
		dest = output.Artifacts{Dir: filepath.Dir(textPath), Base: output.BaseName(textPath)}.Labeled()
	}
	return emit(dest, []byte(labeled))
}

// emit writes data to dest, or to stdout when dest is "-".
func emit(dest string, data []byte) error {
	if dest == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	w := &output.Writer{}
	path, err := w.Write(dest, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	return nil
}
