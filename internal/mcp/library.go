package mcp

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexdjulin/librarian/internal/tools"
)

// registerLibraryTools registers the collection search tools.
// Tools: search_book_info, search_book_reviews
func (s *Server) registerLibraryTools() error {
	searchSchema, err := jsonschema.For[tools.LibrarySearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for library search tools: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.SearchBookInfoName,
		Description: "Search the library for book information: title, author, plot, " +
			"release year, anecdotes, historical context. " +
			"The library holds encyclopedia knowledge gathered in earlier research. " +
			"Returns matching passages with metadata and distance scores.",
		InputSchema: searchSchema,
	}, s.SearchBookInfo)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.SearchBookReviewsName,
		Description: "Search the library for book reviews, opinions, and reader " +
			"impressions summarized from video reviews in earlier research. " +
			"Returns matching passages with metadata and distance scores.",
		InputSchema: searchSchema,
	}, s.SearchBookReviews)

	return nil
}

// SearchBookInfo handles the search_book_info MCP tool call.
func (s *Server) SearchBookInfo(ctx context.Context, _ *mcp.CallToolRequest, input tools.LibrarySearchInput) (*mcp.CallToolResult, any, error) {
	toolCtx := &ai.ToolContext{Context: ctx}
	result, err := s.libraryTools.SearchBookInfo(toolCtx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("searchBookInfo failed: %w", err)
	}

	return resultToMCP(result, s.logger), nil, nil
}

// SearchBookReviews handles the search_book_reviews MCP tool call.
func (s *Server) SearchBookReviews(ctx context.Context, _ *mcp.CallToolRequest, input tools.LibrarySearchInput) (*mcp.CallToolResult, any, error) {
	toolCtx := &ai.ToolContext{Context: ctx}
	result, err := s.libraryTools.SearchBookReviews(toolCtx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("searchBookReviews failed: %w", err)
	}

	return resultToMCP(result, s.logger), nil, nil
}
