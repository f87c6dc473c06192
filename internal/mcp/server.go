package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mfenderov/vault/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Searcher answers full-text queries over indexed documents.
type Searcher interface {
	Search(ctx context.Context, query string, page, pageSize int) (*models.PageResult[models.SearchResult], error)
}

// Catalog looks up persisted document records.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
}

// Server wraps the MCP server with search and catalog tools.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	catalog   Catalog
}

// NewServer creates a new MCP server exposing document tools.
func NewServer(config Config, searcher Searcher, catalog Catalog) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		searcher:  searcher,
		catalog:   catalog,
	}

	// Register search_documents tool
	searchTool := mcp.NewTool("search_documents",
		mcp.WithDescription("Search ingested documents by query. Returns matching pages with highlighted snippets."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("page",
			mcp.Description("Result page, starting at 1 (default: 1)"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Results per page (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	// Register get_document tool
	getDocTool := mcp.NewTool("get_document",
		mcp.WithDescription("Get a specific document page by ID, including extracted content and entity metadata"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Document ID to retrieve"),
		),
	)
	mcpServer.AddTool(getDocTool, s.getDocumentHandler)

	return s
}

// searchHandler handles the search_documents tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	page := req.GetInt("page", 1)
	pageSize := req.GetInt("page_size", 10)

	results, err := s.handleSearch(ctx, query, page, pageSize)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// getDocumentHandler handles the get_document tool call.
func (s *Server) getDocumentHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	doc, err := s.handleGetDocument(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get document failed: %v", err)), nil
	}

	if doc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("document not found: %s", id)), nil
	}

	result, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal document: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// handleSearch runs a paged full-text query.
func (s *Server) handleSearch(ctx context.Context, query string, page, pageSize int) (*models.PageResult[models.SearchResult], error) {
	return s.searcher.Search(ctx, query, page, pageSize)
}

// handleGetDocument retrieves a document record by ID.
func (s *Server) handleGetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.catalog.GetByID(ctx, id)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
