package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mfenderov/vault/pkg/models"
)

type fakeSearcher struct {
	result *models.PageResult[models.SearchResult]
	err    error
}

func (f *fakeSearcher) Search(_ context.Context, query string, page, pageSize int) (*models.PageResult[models.SearchResult], error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &models.PageResult[models.SearchResult]{Page: page, PageSize: pageSize}, nil
}

type fakeCatalog struct {
	docs map[string]*models.Document
	err  error
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[id], nil
}

func TestServer_Creation(t *testing.T) {
	s := NewServer(Config{Name: "vault", Version: "1.0.0"}, &fakeSearcher{}, &fakeCatalog{})

	if s == nil {
		t.Fatal("NewServer() returned nil")
	}
	if s.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
}

func TestServer_HandleSearch(t *testing.T) {
	searcher := &fakeSearcher{
		result: &models.PageResult[models.SearchResult]{
			Items: []models.SearchResult{
				{ID: "doc-1", Path: "/store/contract.pdf", PageNumber: 2, Snippet: "signed <em>contract</em>"},
			},
			TotalCount: 1,
			Page:       1,
			PageSize:   10,
		},
	}
	s := NewServer(Config{Name: "vault", Version: "1.0.0"}, searcher, &fakeCatalog{})

	results, err := s.handleSearch(context.Background(), "contract", 1, 10)
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if len(results.Items) != 1 {
		t.Fatalf("got %d results, want 1", len(results.Items))
	}
	if results.Items[0].ID != "doc-1" {
		t.Errorf("result ID = %q, want doc-1", results.Items[0].ID)
	}
}

func TestServer_HandleSearchError(t *testing.T) {
	s := NewServer(Config{Name: "vault", Version: "1.0.0"},
		&fakeSearcher{err: errors.New("cluster unreachable")}, &fakeCatalog{})

	if _, err := s.handleSearch(context.Background(), "x", 1, 10); err == nil {
		t.Error("handleSearch() should propagate backend errors")
	}
}

func TestServer_HandleGetDocument(t *testing.T) {
	catalog := &fakeCatalog{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", Path: "/store/contract.pdf", Content: "signed contract"},
	}}
	s := NewServer(Config{Name: "vault", Version: "1.0.0"}, &fakeSearcher{}, catalog)

	doc, err := s.handleGetDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("handleGetDocument() error = %v", err)
	}
	if doc == nil {
		t.Fatal("handleGetDocument() returned nil")
	}
	if doc.Content != "signed contract" {
		t.Errorf("Content = %q", doc.Content)
	}

	// Unknown id comes back nil without error.
	doc, err = s.handleGetDocument(context.Background(), "missing")
	if err != nil {
		t.Fatalf("handleGetDocument() error = %v", err)
	}
	if doc != nil {
		t.Errorf("expected nil for unknown id, got %+v", doc)
	}
}
