// Package placement decides whether an intake file is a duplicate and
// moves kept files into durable storage under collision-safe names.
package placement

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/mfenderov/vault/internal/hasher"
)

// Placer moves intake files into the storage directory. The filename is
// a fast duplicate pre-filter; the checksum is the authoritative test.
// Duplicate detection is scoped to same-named files: two identical
// files under different names are both kept.
type Placer struct {
	storageDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per final filename
}

// Result is the disposition of one intake file.
type Result struct {
	// Path is the final storage location. Empty for duplicates.
	Path string
	// Duplicate is true when the intake file matched an already stored
	// file and was discarded.
	Duplicate bool
}

// New creates a placer rooted at storageDir, creating the directory if
// needed.
func New(storageDir string) (*Placer, error) {
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Placer{
		storageDir: storageDir,
		locks:      make(map[string]*sync.Mutex),
	}, nil
}

// Place decides the disposition of the intake file with the given
// checksum. If a same-named stored file has the same checksum, the
// intake copy is deleted and no further processing happens. If the
// checksums differ, the incoming file is stored under a fresh
// uuid-prefixed name. Otherwise the file is moved to
// storageDir/<original name>.
func (p *Placer) Place(ctx context.Context, intakePath, checksum string) (Result, error) {
	name := filepath.Base(intakePath)

	// Two concurrent pipelines placing files with the same original
	// name must not race to one target path.
	lock := p.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	final := filepath.Join(p.storageDir, name)

	if _, err := os.Stat(final); err == nil {
		existing, err := hasher.SHA256File(ctx, final)
		if err != nil {
			return Result{}, fmt.Errorf("failed to hash stored file: %w", err)
		}
		if existing == checksum {
			if err := os.Remove(intakePath); err != nil {
				return Result{}, fmt.Errorf("failed to discard duplicate: %w", err)
			}
			slog.Info("duplicate discarded", "path", intakePath, "checksum", checksum)
			return Result{Duplicate: true}, nil
		}
		// Same name, different bytes: keep both.
		final = filepath.Join(p.storageDir, uuid.NewString()+"_"+name)
	} else if !os.IsNotExist(err) {
		return Result{}, fmt.Errorf("failed to probe storage target: %w", err)
	}

	if err := moveFile(intakePath, final); err != nil {
		return Result{}, err
	}

	return Result{Path: final}, nil
}

func (p *Placer) nameLock(name string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[name] = lock
	}
	return lock
}

// moveFile renames src to dst, falling back to copy+remove when the
// intake and storage directories live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open intake file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create storage file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy into storage: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish storage copy: %w", err)
	}

	return os.Remove(src)
}
