package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/vault/internal/backup"
	"github.com/mfenderov/vault/internal/coordinator"
	"github.com/mfenderov/vault/internal/elasticsearch"
	"github.com/mfenderov/vault/internal/extract"
	"github.com/mfenderov/vault/internal/ocr"
	"github.com/mfenderov/vault/internal/store"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the intake directory and ingest files as they arrive",
	Long: `Watch the intake directory and run every new file through the
ingestion pipeline: content hashing, deduplication, text extraction
with OCR fallback, entity annotation, cataloging, and indexing.

Runs until interrupted. Files already present in the intake directory
when the watcher starts are not picked up; use 'vault ingest' for
those.

Example:
  vault watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	coord, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("watching for documents",
		"watch_dir", cfg.Ingest.WatchDir,
		"storage_dir", cfg.Ingest.StorageDir)

	return coord.Run(ctx)
}

// buildPipeline wires the full ingestion stack from the loaded
// configuration. The returned cleanup must be called after the
// coordinator stops.
func buildPipeline(ctx context.Context) (*coordinator.Coordinator, func(), error) {
	cfg := GetConfig()

	catalog, err := store.Open(cfg.Database.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		catalog.Close()
		return nil, nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	if !esClient.Ping(ctx) {
		slog.Warn("elasticsearch not reachable, indexing will fail until it is",
			"addresses", cfg.Elasticsearch.Addresses)
	}

	engine, err := ocr.New(cfg.OCR.Languages...)
	if err != nil {
		catalog.Close()
		return nil, nil, fmt.Errorf("failed to initialize OCR engine: %w", err)
	}

	opts := []coordinator.Option{}
	if cfg.Backup.Enabled {
		mirror, err := backup.New(backup.Config{
			Endpoint:        cfg.Backup.Endpoint,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
			UseSSL:          cfg.Backup.UseSSL,
		})
		if err != nil {
			engine.Close()
			catalog.Close()
			return nil, nil, fmt.Errorf("failed to create backup client: %w", err)
		}
		if err := mirror.EnsureBucket(ctx); err != nil {
			engine.Close()
			catalog.Close()
			return nil, nil, fmt.Errorf("failed to prepare backup bucket: %w", err)
		}
		opts = append(opts, coordinator.WithMirror(mirror))
		slog.Info("backup mirror enabled", "endpoint", cfg.Backup.Endpoint, "bucket", mirror.Bucket())
	}

	coord, err := coordinator.New(coordinator.Config{
		WatchDir:         cfg.Ingest.WatchDir,
		StorageDir:       cfg.Ingest.StorageDir,
		MaxConcurrent:    cfg.Ingest.MaxConcurrent,
		AccessRetryDelay: cfg.Ingest.AccessRetryDelay,
		AccessTimeout:    cfg.Ingest.AccessTimeout,
	}, extract.New(engine), catalog, esClient, opts...)
	if err != nil {
		engine.Close()
		catalog.Close()
		return nil, nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	cleanup := func() {
		if err := engine.Close(); err != nil {
			slog.Warn("failed to close OCR engine", "error", err)
		}
		if err := catalog.Close(); err != nil {
			slog.Warn("failed to close catalog", "error", err)
		}
	}
	return coord, cleanup, nil
}
