package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultProjectID tags documents that were not assigned to a project.
const DefaultProjectID = "default"

// Status describes the processing state of a document.
type Status uint8

// StatusParsed is currently the only status a persisted document can have.
const StatusParsed Status = 1

// Document represents one searchable unit of extracted text: a whole
// file, or a single page of a paginated file. All documents produced
// from the same source file share Path and Checksum.
type Document struct {
	ID             string    `json:"id"`
	Path           string    `json:"path"`
	ProjectID      string    `json:"project_id"`
	PageNumber     int       `json:"page_number"`
	Content        string    `json:"content"`
	Metadata       string    `json:"metadata"` // JSON map of entity category -> matches
	Status         Status    `json:"status"`
	ContentType    string    `json:"content_type"` // lowercase file extension, e.g. ".pdf"
	ContentLength  int64     `json:"content_length"`
	ExtractionDate time.Time `json:"extraction_date"`
	ParentID       string    `json:"parent_id,omitempty"` // reserved for hierarchical documents
	RootID         string    `json:"root_id,omitempty"`   // reserved for hierarchical documents
	Checksum       string    `json:"checksum"` // lowercase hex SHA-256 of the original file bytes
}

// NewID generates a fresh globally unique document identifier.
func NewID() string {
	return uuid.NewString()
}

// EncodeMetadata serializes an entity map for the Metadata field.
// A nil or empty map encodes as "{}".
func EncodeMetadata(entities map[string][]string) string {
	if len(entities) == 0 {
		return "{}"
	}
	data, err := json.Marshal(entities)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// SearchResult is the query-side projection of a document hit.
type SearchResult struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	PageNumber int    `json:"page_number"`
	Snippet    string `json:"snippet"`
}

// PageResult holds one page of a paged query.
type PageResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}
