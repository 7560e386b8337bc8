package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/declgrep/declgrep/internal/engine"
	"github.com/declgrep/declgrep/internal/index"
	"github.com/declgrep/declgrep/internal/query"
	"github.com/declgrep/declgrep/internal/scanner"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeBadQuery      = -32001 // Query failed to parse
)

// handleSearchDeclarations handles the search_declarations tool invocation.
// Shards come from the per-file cache; files that fail to read or scan are
// dropped and counted, never fatal.
func (s *Server) handleSearchDeclarations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	queryStr, ok := args["query"].(string)
	if !ok || queryStr == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	ext := getStringDefault(args, "extension", engine.DefaultExtension)

	q, err := query.Parse(queryStr)
	if err != nil {
		return nil, newMCPError(ErrorCodeBadQuery, "query parse failure", map[string]interface{}{
			"query": queryStr,
			"error": err.Error(),
		})
	}

	start := time.Now()

	files, err := engine.DiscoverFiles(path, ext)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "file discovery failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	searched, failedCount := 0, 0
	shards := make([]*index.ShardSet, 0, len(files))
	for _, f := range files {
		set, err := s.cachedShards(f)
		if err != nil {
			failedCount++
			var se *scanner.ScanError
			if errors.As(err, &se) {
				// Read succeeded, structure didn't: the file still counts
				// toward the searched corpus.
				searched++
			}
			continue
		}
		searched++
		shards = append(shards, set)
	}

	locs, err := s.engine.Evaluate(ctx, q, shards)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "query evaluation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	matches := make([]string, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, loc.String())
	}

	response := map[string]interface{}{
		"matches":        matches,
		"files_searched": searched,
		"files_failed":   failedCount,
		"duration_ms":    time.Since(start).Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"server":  ServerName,
		"version": ServerVersion,
		"cache": map[string]interface{}{
			"entries": s.cache.Len(),
			"hits":    s.cacheHits.Load(),
			"misses":  s.cacheMisses.Load(),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is a readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
