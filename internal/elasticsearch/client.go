// Package elasticsearch wraps the Elasticsearch client with the vault
// index operations.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/mfenderov/vault/pkg/models"
)

// snippetLength caps the fallback excerpt when the engine returns no
// highlight fragments. It matches the highlight fragment size.
const snippetLength = 300

// fragmentSeparator joins multiple highlighted fragments of one hit.
const fragmentSeparator = " ... "

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// Client wraps the Elasticsearch client with vault-specific operations.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:    es,
		index: config.Index,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexMapping defines the ES index mapping for document records:
// keyword fields for exact filtering, text fields for full-text match.
var indexMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"project_id": { "type": "keyword" },
			"checksum": { "type": "keyword" },
			"path": { "type": "text" },
			"content": { "type": "text" },
			"content_type": { "type": "keyword" },
			"page_number": { "type": "integer" },
			"extraction_date": { "type": "date" }
		}
	}
}`

// EnsureIndex creates the index with its mapping if it does not already
// exist. Safe to call repeatedly.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// IndexDocument indexes a single document record.
func (c *Client) IndexDocument(ctx context.Context, doc models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document (status %d): %s", res.StatusCode, res.String())
	}

	return nil
}

// BulkIndex writes a batch of records in one bulk request. Per-item
// failures are logged, not raised: delivery is at-least-once and
// idempotent by document id.
func (c *Client) BulkIndex(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, doc := range docs {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, c.index, doc.ID)
		body.WriteString(meta)
		body.WriteByte('\n')

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
		}
		body.Write(data)
		body.WriteByte('\n')
	}

	res, err := c.es.Bulk(
		bytes.NewReader(body.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(c.index),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index error (status %d): %s", res.StatusCode, res.String())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}

	if br.Errors {
		for _, item := range br.Items {
			if item.Index.Error.Type != "" {
				slog.Error("failed to index document",
					"id", item.Index.ID,
					"type", item.Index.Error.Type,
					"reason", item.Index.Error.Reason)
			}
		}
	}

	return nil
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// bulkResponse is the subset of the ES bulk response we inspect.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID    string `json:"_id"`
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// searchResponse is the subset of the ES search response we inspect.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source    models.Document     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a fuzzy multi-field query over content and path, with
// highlighting on content, and returns one page of results.
func (c *Client) Search(ctx context.Context, query string, page, pageSize int) (*models.PageResult[models.SearchResult], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	from := (page - 1) * pageSize

	searchQuery := map[string]any{
		"from": from,
		"size": pageSize,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"content", "path"},
				"fuzziness": "AUTO",
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"content": map[string]any{
					"pre_tags":      []string{"<em>"},
					"post_tags":     []string{"</em>"},
					"fragment_size": snippetLength,
				},
			},
		},
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]models.SearchResult, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		items[i] = models.SearchResult{
			ID:         hit.Source.ID,
			Path:       hit.Source.Path,
			PageNumber: hit.Source.PageNumber,
			Snippet:    buildSnippet(hit.Highlight["content"], hit.Source.Content),
		}
	}

	return &models.PageResult[models.SearchResult]{
		Items:      items,
		TotalCount: sr.Hits.Total.Value,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// buildSnippet joins highlighted fragments, falling back to the leading
// content excerpt when the engine produced none.
func buildSnippet(fragments []string, content string) string {
	if len(fragments) > 0 {
		return strings.Join(fragments, fragmentSeparator)
	}
	if len(content) > snippetLength {
		// Back up to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := snippetLength
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		return content[:cut] + "..."
	}
	return content
}
