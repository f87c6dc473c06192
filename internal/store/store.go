// Package store persists document records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mfenderov/vault/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id              TEXT PRIMARY KEY,
	path            TEXT NOT NULL,
	project_id      TEXT NOT NULL,
	page_number     INTEGER NOT NULL,
	content         TEXT NOT NULL,
	metadata        TEXT NOT NULL DEFAULT '{}',
	status          INTEGER NOT NULL,
	content_type    TEXT NOT NULL,
	content_length  INTEGER NOT NULL,
	extraction_date TIMESTAMP NOT NULL,
	parent_id       TEXT,
	root_id         TEXT,
	checksum        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_checksum ON documents(checksum);
CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);
`

// Store is a SQLite-backed document repository. Records are staged with
// Add/AddRange and committed in one transaction by Save.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	staged []models.Document
}

// Open creates or opens the database at dataDir/vault.db and applies
// the schema.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vault.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stages a single record for the next Save.
func (s *Store) Add(doc models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = append(s.staged, doc)
}

// AddRange stages a batch of records for the next Save.
func (s *Store) AddRange(docs []models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = append(s.staged, docs...)
}

// Save writes all staged records in one transaction and reports whether
// anything was persisted.
func (s *Store) Save(ctx context.Context) (bool, error) {
	s.mu.Lock()
	batch := s.staged
	s.staged = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return false, nil
	}

	if err := s.insertBatch(ctx, batch); err != nil {
		// Failed batches are not restaged: the pipeline logs and moves
		// on, matching the no-retry sink contract.
		return false, err
	}
	return true, nil
}

// SaveBatch persists one pipeline's batch in a single transaction,
// bypassing the staging area.
func (s *Store) SaveBatch(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.insertBatch(ctx, docs)
}

func (s *Store) insertBatch(ctx context.Context, docs []models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (
			id, path, project_id, page_number, content, metadata, status,
			content_type, content_length, extraction_date, parent_id, root_id, checksum
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		_, err := stmt.ExecContext(ctx,
			doc.ID, doc.Path, doc.ProjectID, doc.PageNumber, doc.Content,
			doc.Metadata, doc.Status, doc.ContentType, doc.ContentLength,
			doc.ExtractionDate.UTC().Format(time.RFC3339Nano),
			nullable(doc.ParentID), nullable(doc.RootID), doc.Checksum)
		if err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetByID returns the record with the given id, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

// GetAll returns every persisted record.
func (s *Store) GetAll(ctx context.Context) ([]models.Document, error) {
	return s.query(ctx, selectColumns+` ORDER BY path, page_number`)
}

// Find returns the records matching the predicate.
func (s *Store) Find(ctx context.Context, predicate func(models.Document) bool) ([]models.Document, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Document
	for _, doc := range all {
		if predicate(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

const selectColumns = `
	SELECT id, path, project_id, page_number, content, metadata, status,
	       content_type, content_length, extraction_date, parent_id, root_id, checksum
	FROM documents`

func (s *Store) query(ctx context.Context, q string, args ...any) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		doc       models.Document
		status    uint8
		extracted string
		parentID  sql.NullString
		rootID    sql.NullString
	)

	err := row.Scan(&doc.ID, &doc.Path, &doc.ProjectID, &doc.PageNumber,
		&doc.Content, &doc.Metadata, &status, &doc.ContentType,
		&doc.ContentLength, &extracted, &parentID, &rootID, &doc.Checksum)
	if err != nil {
		return nil, err
	}

	doc.Status = models.Status(status)
	doc.ParentID = parentID.String
	doc.RootID = rootID.String
	if ts, err := time.Parse(time.RFC3339Nano, extracted); err == nil {
		doc.ExtractionDate = ts
	}
	return &doc, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
