// Package mcp implements a Model Context Protocol (MCP) server.
//
// The server exposes the librarian's research tools over MCP so
// external clients (Genkit CLI, IDE assistants, other agents) can
// search the library shelves, look up Wikipedia, and pull YouTube
// review transcripts through a standardized protocol, without going
// through the chat loop.
//
// Handlers reuse the same toolset structs the chat agent calls, so a
// tool behaves identically regardless of who invoked it. Results
// follow the librarian's uniform tool payload: successes return the
// data as JSON text, failures return "[CODE] message" with sanitized
// details and IsError set.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexdjulin/librarian/internal/tools"
)

// Config holds MCP server configuration. Library and Wikipedia
// toolsets are required; YouTube may be nil, in which case the video
// tools are not exposed.
type Config struct {
	Name    string
	Version string
	Logger  *slog.Logger

	Library   *tools.Library
	Wikipedia *tools.Wikipedia
	YouTube   *tools.YouTube
}

// Server wraps the MCP SDK server around the librarian's toolsets.
type Server struct {
	mcpServer *mcp.Server
	logger    *slog.Logger

	libraryTools   *tools.Library
	wikipediaTools *tools.Wikipedia
	youtubeTools   *tools.YouTube
}

// NewServer creates an MCP server and registers the research tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Library == nil {
		return nil, errors.New("library toolset is required")
	}
	if cfg.Wikipedia == nil {
		return nil, errors.New("wikipedia toolset is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer:      mcpServer,
		logger:         logger,
		libraryTools:   cfg.Library,
		wikipediaTools: cfg.Wikipedia,
		youtubeTools:   cfg.YouTube,
	}

	if err := s.registerLibraryTools(); err != nil {
		return nil, fmt.Errorf("registering library tools: %w", err)
	}
	if err := s.registerWikipediaTools(); err != nil {
		return nil, fmt.Errorf("registering wikipedia tools: %w", err)
	}
	if s.youtubeTools != nil {
		if err := s.registerYouTubeTools(); err != nil {
			return nil, fmt.Errorf("registering youtube tools: %w", err)
		}
	} else {
		logger.Warn("no video source configured, video tools not exposed")
	}

	return s, nil
}

// Run starts the MCP server on the given transport. This is a blocking
// call that handles all protocol communication until the context is
// canceled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}
