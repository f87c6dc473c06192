package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mfenderov/vault/pkg/models"
)

const maxUploadSize = 256 << 20 // 256 MiB

// Searcher answers full-text queries over indexed documents.
type Searcher interface {
	Search(ctx context.Context, query string, page, pageSize int) (*models.PageResult[models.SearchResult], error)
}

// Catalog looks up persisted document records.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
}

// Server exposes the document catalog over HTTP.
type Server struct {
	searcher  Searcher
	catalog   Catalog
	intakeDir string
	router    chi.Router
}

// New creates an HTTP server. Uploaded files are staged into intakeDir
// where the watch pipeline picks them up.
func New(searcher Searcher, catalog Catalog, intakeDir string) *Server {
	s := &Server{
		searcher:  searcher,
		catalog:   catalog,
		intakeDir: intakeDir,
	}

	r := chi.NewRouter()
	r.Get("/api/documents/search", s.handleSearch)
	r.Get("/api/documents/{id}/download", s.handleDownload)
	r.Get("/api/documents/{id}/open", s.handleOpen)
	r.Post("/api/documents/upload", s.handleUpload)
	s.router = r

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	slog.Info("http server listening", "addr", addr)

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errc:
		return fmt.Errorf("failed to serve http: %w", err)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		http.Error(w, "query parameter is required", http.StatusBadRequest)
		return
	}

	page := intParam(r, "page", 1)
	pageSize := intParam(r, "pageSize", 10)

	result, err := s.searcher.Search(r.Context(), query, page, pageSize)
	if err != nil {
		slog.Error("failed to search documents", "query", query, "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, result)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}

	f, err := os.Open(doc.Path)
	if err != nil {
		slog.Warn("stored file unavailable", "id", doc.ID, "path", doc.Path, "error", err)
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(doc.Path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(doc.Path)))

	if _, err := io.Copy(w, f); err != nil {
		slog.Error("failed to stream file", "id", doc.ID, "error", err)
	}
}

// handleOpen launches the document in the host's default viewer. Only
// useful when the server runs on the same machine as the caller.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if _, err := os.Stat(doc.Path); err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	if err := exec.Command("xdg-open", doc.Path).Start(); err != nil {
		slog.Error("failed to open file", "id", doc.ID, "error", err)
		http.Error(w, "open failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"ok": true, "path": doc.Path})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !allowedUpload(name) {
		http.Error(w, "unsupported file type", http.StatusBadRequest)
		return
	}

	// Stage to a temp file first so the watcher never sees a partial
	// write in the intake directory.
	tmp, err := os.CreateTemp("", "vault-upload-*")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dst := filepath.Join(s.intakeDir, uploadName(s.intakeDir, name))
	if err := moveFile(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		slog.Error("failed to stage upload", "name", name, "error", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	slog.Info("file uploaded", "name", name, "size", header.Size)
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"ok": true, "name": name})
}

// lookup resolves the {id} parameter to a catalog record, writing a
// 404 when it does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	id := chi.URLParam(r, "id")

	doc, err := s.catalog.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("failed to load document", "id", id, "error", err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return nil, false
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	return doc, true
}

func allowedUpload(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".zip", ".txt":
		return true
	default:
		return false
	}
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// uploadName returns a collision-free staging name. Unused names pass
// through unchanged.
func uploadName(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
		return name
	}
	return uuid.NewString() + "_" + name
}
