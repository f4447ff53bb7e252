package mcp

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexdjulin/librarian/internal/tools"
)

// registerYouTubeTools registers the video research tools. Only called
// when a video source is configured.
// Tools: search_youtube_reviews, get_video_transcript
func (s *Server) registerYouTubeTools() error {
	searchSchema, err := jsonschema.For[tools.SearchYouTubeReviewsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for youtube search tool: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.SearchYouTubeReviewsName,
		Description: "Search YouTube for book review videos and summarize their transcripts. " +
			"Returns a list of videos with title, description, channel, link, " +
			"and a transcript summary relevant to the query.",
		InputSchema: searchSchema,
	}, s.SearchYouTubeReviews)

	transcriptSchema, err := jsonschema.For[tools.GetVideoTranscriptInput](nil)
	if err != nil {
		return fmt.Errorf("schema for video transcript tool: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.GetVideoTranscriptName,
		Description: "Retrieve the full transcript of a YouTube video given its URL or video id. " +
			"Only works for videos about literature or books; other videos are refused. " +
			"Also caches a transcript summary in the library for later searches.",
		InputSchema: transcriptSchema,
	}, s.GetVideoTranscript)

	return nil
}

// SearchYouTubeReviews handles the search_youtube_reviews MCP tool call.
func (s *Server) SearchYouTubeReviews(ctx context.Context, _ *mcp.CallToolRequest, input tools.SearchYouTubeReviewsInput) (*mcp.CallToolResult, any, error) {
	toolCtx := &ai.ToolContext{Context: ctx}
	result, err := s.youtubeTools.SearchReviews(toolCtx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("searchYouTubeReviews failed: %w", err)
	}

	return resultToMCP(result, s.logger), nil, nil
}

// GetVideoTranscript handles the get_video_transcript MCP tool call.
func (s *Server) GetVideoTranscript(ctx context.Context, _ *mcp.CallToolRequest, input tools.GetVideoTranscriptInput) (*mcp.CallToolResult, any, error) {
	toolCtx := &ai.ToolContext{Context: ctx}
	result, err := s.youtubeTools.GetTranscript(toolCtx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("getVideoTranscript failed: %w", err)
	}

	return resultToMCP(result, s.logger), nil, nil
}
