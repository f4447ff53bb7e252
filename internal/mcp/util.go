package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexdjulin/librarian/internal/tools"
)

// Error detail whitelist policy:
//   - error_code: controlled enum, e.g. "NotFound"
//   - error_type: controlled enum, e.g. "ValidationError"
//   - user_message: user-facing message only
//   - request_id: for support correlation
//
// Never expose stack traces, file paths, environment variables,
// internal IDs, or API keys to MCP clients.

// resultToMCP converts a tool Result to an mcp.CallToolResult.
// If logger is nil, falls back to slog.Default().
func resultToMCP(result tools.Result, logger *slog.Logger) *mcp.CallToolResult {
	if logger == nil {
		logger = slog.Default()
	}

	if result.Status == tools.StatusError && result.Error != nil {
		errorText := fmt.Sprintf("[%s] %s", result.Error.Code, result.Error.Message)
		if result.Error.Details != nil {
			// Sanitize error details before exposing to clients
			sanitized := sanitizeErrorDetails(result.Error.Details)
			if len(sanitized) > 0 {
				detailsJSON, err := json.Marshal(sanitized)
				if err != nil {
					// Log internal error, don't expose to client
					logger.Warn("marshaling sanitized error details", "error", err)
					errorText += "\nDetails: (see server logs)"
				} else {
					errorText += fmt.Sprintf("\nDetails: %s", string(detailsJSON))
				}
			}

			// Always log full details server-side for debugging
			logger.Debug("MCP error details", "details", result.Error.Details)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: errorText}},
			IsError: true,
		}
	}

	// Success - return data as JSON, keeping any advisory message
	// (e.g. a refusal the model is meant to relay) visible.
	if result.Message != "" {
		out := map[string]any{"message": result.Message}
		if result.Data != nil {
			out["data"] = result.Data
		}
		return dataToMCP(out)
	}
	return dataToMCP(result.Data)
}

// dataToMCP converts arbitrary data to MCP text content via JSON
// marshaling. All data becomes JSON; clients parse it.
func dataToMCP(data any) *mcp.CallToolResult {
	if data == nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: ""}},
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "marshal error"}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}

// sanitizeErrorDetails extracts only safe, whitelisted fields from
// error details. Everything else is dropped.
func sanitizeErrorDetails(details any) map[string]any {
	safe := make(map[string]any)

	detailsMap, ok := details.(map[string]any)
	if !ok {
		return safe
	}

	safeFields := map[string]bool{
		"error_code":   true,
		"error_type":   true,
		"user_message": true,
		"request_id":   true,
	}

	for key, val := range detailsMap {
		if safeFields[key] {
			safe[key] = val
		}
	}

	return safe
}
