// Package coordinator watches the intake directory and drives each
// dropped file through the ingestion pipeline: hash, placement,
// extraction, entity annotation, persistence, indexing.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mfenderov/vault/internal/archive"
	"github.com/mfenderov/vault/internal/events"
	"github.com/mfenderov/vault/internal/hasher"
	"github.com/mfenderov/vault/internal/placement"
	"github.com/mfenderov/vault/pkg/models"
)

// Store is the persistence sink: one batch per file pipeline.
type Store interface {
	SaveBatch(ctx context.Context, docs []models.Document) error
}

// Index is the search-index sink.
type Index interface {
	EnsureIndex(ctx context.Context) error
	BulkIndex(ctx context.Context, docs []models.Document) error
}

// Extractor turns a stored file into document record drafts.
type Extractor interface {
	Extract(ctx context.Context, path, checksum string) ([]models.Document, error)
}

// Mirror replicates stored originals to object storage, best-effort.
type Mirror interface {
	PutFile(ctx context.Context, path string) error
}

// Config holds the coordinator's explicit wiring; there is no ambient
// path state.
type Config struct {
	// WatchDir is the intake directory.
	WatchDir string
	// StorageDir is where kept files land.
	StorageDir string
	// MaxConcurrent bounds the number of in-flight file pipelines.
	MaxConcurrent int
	// AccessRetryDelay is the pause between exclusive-open attempts on
	// a freshly dropped file.
	AccessRetryDelay time.Duration
	// AccessTimeout is the wall-clock limit on waiting for access.
	AccessTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.AccessRetryDelay <= 0 {
		c.AccessRetryDelay = 500 * time.Millisecond
	}
	if c.AccessTimeout <= 0 {
		c.AccessTimeout = time.Minute
	}
}

// Coordinator owns the watch loop and dispatches one pipeline per
// detected file on a bounded worker pool.
type Coordinator struct {
	cfg       Config
	placer    *placement.Placer
	extractor Extractor
	store     Store
	index     Index
	mirror    Mirror
	events    chan<- any

	sem chan struct{}
	wg  sync.WaitGroup
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithMirror enables best-effort replication of stored files.
func WithMirror(m Mirror) Option {
	return func(c *Coordinator) { c.mirror = m }
}

// WithEvents emits pipeline progress events on ch. Events are dropped
// rather than blocking the pipeline when ch is full.
func WithEvents(ch chan<- any) Option {
	return func(c *Coordinator) { c.events = ch }
}

// New creates a coordinator. The storage directory is created if
// missing.
func New(cfg Config, extractor Extractor, store Store, index Index, opts ...Option) (*Coordinator, error) {
	cfg.applyDefaults()

	placer, err := placement.New(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:       cfg,
		placer:    placer,
		extractor: extractor,
		store:     store,
		index:     index,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run ensures the search index exists, then watches the intake
// directory until ctx is cancelled. Each eligible file event is
// dispatched as an independent pipeline; one file's failure never stops
// the loop. On cancellation the subscription closes and in-flight
// pipelines finish best-effort.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure search index: %w", err)
	}

	if err := os.MkdirAll(c.cfg.WatchDir, 0o755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.cfg.WatchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.cfg.WatchDir, err)
	}

	slog.Info("ingestion coordinator watching",
		"watch_dir", c.cfg.WatchDir,
		"storage_dir", c.cfg.StorageDir,
		"max_concurrent", c.cfg.MaxConcurrent)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down, waiting for in-flight pipelines")
			c.wg.Wait()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				c.wg.Wait()
				return nil
			}
			// Create also covers files renamed into the directory.
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if !eligible(event.Name) {
				continue
			}
			slog.Info("new file detected", "path", event.Name)
			c.dispatch(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				c.wg.Wait()
				return nil
			}
			slog.Error("file watcher error", "error", err)
		}
	}
}

// IngestExisting processes every eligible file already sitting in the
// intake directory and returns once all of them finish. The watch loop
// only sees new arrivals; this covers files dropped before it started.
func (c *Coordinator) IngestExisting(ctx context.Context) (int, error) {
	if err := c.index.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure search index: %w", err)
	}

	entries, err := os.ReadDir(c.cfg.WatchDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read intake directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(c.cfg.WatchDir, entry.Name())
		if !eligible(path) {
			continue
		}
		c.dispatch(ctx, path)
		count++
	}

	c.wg.Wait()
	return count, nil
}

// dispatch hands a file to the worker pool without blocking the event
// loop.
func (c *Coordinator) dispatch(ctx context.Context, path string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			slog.Warn("abandoning queued file on shutdown", "path", path)
			return
		}
		defer func() { <-c.sem }()

		c.handleFile(ctx, path)
	}()
}

// eligible filters out dotfiles and platform metadata drops.
func eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return !archive.Ignored(base)
}

// handleFile runs one file's pipeline. Errors are logged, never
// propagated: nothing a single file does may affect its siblings or the
// watch loop.
func (c *Coordinator) handleFile(ctx context.Context, intakePath string) {
	start := time.Now()

	if err := c.waitForAccess(ctx, intakePath); err != nil {
		slog.Error("failed to get access to file", "path", intakePath, "error", err)
		return
	}

	checksum, err := hasher.SHA256File(ctx, intakePath)
	if err != nil {
		slog.Error("failed to hash file", "path", intakePath, "error", err)
		return
	}

	placed, err := c.placer.Place(ctx, intakePath, checksum)
	if err != nil {
		slog.Error("failed to place file", "path", intakePath, "error", err)
		return
	}
	if placed.Duplicate {
		c.emit(events.DuplicateDiscarded{
			Path:      intakePath,
			Checksum:  checksum,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	// Past placement the work runs to completion even on shutdown;
	// cancellation only stops the subscription, access waits, and
	// hashing.
	workCtx := context.WithoutCancel(ctx)

	if c.mirror != nil {
		if err := c.mirror.PutFile(workCtx, placed.Path); err != nil {
			slog.Warn("failed to mirror stored file", "path", placed.Path, "error", err)
		}
	}

	if strings.EqualFold(filepath.Ext(placed.Path), ".zip") {
		c.processArchive(workCtx, placed.Path)
		return
	}

	c.processDocument(workCtx, placed.Path, checksum, start)
}

// processDocument runs extraction, entity annotation, persistence, and
// indexing for one stored file. Stage order is strict: a record is
// never indexed unless it was stored first.
func (c *Coordinator) processDocument(ctx context.Context, storedPath, checksum string, start time.Time) {
	records, err := c.extractor.Extract(ctx, storedPath, checksum)
	if err != nil {
		slog.Error("failed to extract content", "path", storedPath, "error", err)
		return
	}

	records = dropEmpty(records)
	if len(records) == 0 {
		slog.Info("no content extracted", "path", storedPath)
		return
	}

	if err := c.store.SaveBatch(ctx, records); err != nil {
		slog.Error("failed to persist batch", "path", storedPath, "error", err)
		return
	}

	if err := c.index.BulkIndex(ctx, records); err != nil {
		// Stored but unsearchable: accepted inconsistency window.
		slog.Error("failed to index batch", "path", storedPath, "error", err)
	}

	slog.Info("file ingested",
		"path", storedPath,
		"records", len(records),
		"duration", time.Since(start))

	c.emit(events.FileIngested{
		Path:      storedPath,
		Checksum:  checksum,
		Records:   len(records),
		Duration:  time.Since(start),
		Timestamp: time.Now().UTC(),
	})
}

// processArchive expands a stored zip and runs every eligible member
// through the full single-file pipeline. Member failures are isolated;
// the working directory is removed no matter what.
func (c *Coordinator) processArchive(ctx context.Context, archivePath string) {
	dir, members, err := archive.Extract(archivePath)
	if dir != "" {
		defer os.RemoveAll(dir)
	}
	if err != nil {
		slog.Error("failed to expand archive", "path", archivePath, "error", err)
		return
	}

	slog.Info("archive expanded", "path", archivePath, "members", len(members))

	for _, member := range members {
		c.processMember(ctx, member)
	}

	c.emit(events.ArchiveExpanded{
		Path:      archivePath,
		Members:   len(members),
		Timestamp: time.Now().UTC(),
	})
}

// processMember runs the single-file pipeline for one archive member:
// checksum, placement, extraction, persistence, indexing.
func (c *Coordinator) processMember(ctx context.Context, memberPath string) {
	start := time.Now()

	checksum, err := hasher.SHA256File(ctx, memberPath)
	if err != nil {
		slog.Error("failed to hash archive member", "path", memberPath, "error", err)
		return
	}

	placed, err := c.placer.Place(ctx, memberPath, checksum)
	if err != nil {
		slog.Error("failed to place archive member", "path", memberPath, "error", err)
		return
	}
	if placed.Duplicate {
		c.emit(events.DuplicateDiscarded{
			Path:      memberPath,
			Checksum:  checksum,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	if c.mirror != nil {
		if err := c.mirror.PutFile(ctx, placed.Path); err != nil {
			slog.Warn("failed to mirror stored file", "path", placed.Path, "error", err)
		}
	}

	c.processDocument(ctx, placed.Path, checksum, start)
}

// dropEmpty enforces the non-empty-content invariant before the sinks
// see the batch.
func dropEmpty(records []models.Document) []models.Document {
	kept := records[:0]
	for _, rec := range records {
		if strings.TrimSpace(rec.Content) == "" {
			slog.Debug("dropping empty record", "path", rec.Path, "page", rec.PageNumber)
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// emit publishes a pipeline event without ever blocking the pipeline.
func (c *Coordinator) emit(event any) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- event:
	default:
	}
}
