// Package cmd — serve command.
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/structmark/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fuse, parse and export over HTTP",
	Long: `Serve exposes the text stages of the pipeline:

  POST /v1/fuse            {"text", "spans"} -> {"text", "stats"}
  POST /v1/parse           {"text"} -> {"records"}
  POST /v1/export          {"text"} or {"records"} -> corpus text
  POST /v1/render/{format} {"text"} -> rendered records
  GET  /healthz
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	table, err := cfg.MarkupTable()
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Table:        table,
		LineBreak:    cfg.Parser.LineBreak,
		MaxTokens:    cfg.Corpus.MaxTokens,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
