package cmd

import (
	"fmt"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/alexdjulin/librarian/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the librarian's research tools over MCP stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
library search, Wikipedia, and YouTube transcript tools to MCP clients.
Logs go to stderr; stdout carries only JSON-RPC framing.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := mcp.NewServer(mcp.Config{
		Name:      "librarian",
		Version:   Version,
		Logger:    a.Logger,
		Library:   a.Toolsets.Library,
		Wikipedia: a.Toolsets.Wikipedia,
		YouTube:   a.Toolsets.YouTube,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	a.Logger.Info("MCP server ready", "name", "librarian", "version", Version, "transport", "stdio")

	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	a.Logger.Info("MCP server shut down")
	return nil
}
