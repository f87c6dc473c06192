package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mfenderov/vault/internal/elasticsearch"
	"github.com/mfenderov/vault/internal/server"
	"github.com/mfenderov/vault/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for searching, downloading, and uploading
documents.

Endpoints:
  GET  /api/documents/search?query=...   Full-text search
  GET  /api/documents/{id}/download      Download the stored file
  GET  /api/documents/{id}/open          Open in the host's viewer
  POST /api/documents/upload             Drop a file into the intake

Example:
  vault serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	catalog, err := store.Open(cfg.Database.Dir)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer catalog.Close()

	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	if err := os.MkdirAll(cfg.Ingest.WatchDir, 0o755); err != nil {
		return fmt.Errorf("failed to create intake directory: %w", err)
	}

	srv := server.New(esClient, catalog, cfg.Ingest.WatchDir)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
