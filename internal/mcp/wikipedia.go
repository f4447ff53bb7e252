package mcp

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexdjulin/librarian/internal/tools"
)

// registerWikipediaTools registers the encyclopedia research tool.
// Tools: search_wikipedia
func (s *Server) registerWikipediaTools() error {
	searchSchema, err := jsonschema.For[tools.SearchWikipediaInput](nil)
	if err != nil {
		return fmt.Errorf("schema for wikipedia search tool: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.SearchWikipediaName,
		Description: "Retrieve information from Wikipedia based on a search query. " +
			"The response is a summary of the top article, filtered to the passages " +
			"relevant to the query, and is also stored in the library for later searches. " +
			"The query should name the book, mention the support, and state what to " +
			"find out, e.g. 'Journey To The Center Of The Earth, Book, Plot'.",
		InputSchema: searchSchema,
	}, s.SearchWikipedia)

	return nil
}

// SearchWikipedia handles the search_wikipedia MCP tool call.
func (s *Server) SearchWikipedia(ctx context.Context, _ *mcp.CallToolRequest, input tools.SearchWikipediaInput) (*mcp.CallToolResult, any, error) {
	toolCtx := &ai.ToolContext{Context: ctx}
	result, err := s.wikipediaTools.SearchWikipedia(toolCtx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("searchWikipedia failed: %w", err)
	}

	return resultToMCP(result, s.logger), nil, nil
}
