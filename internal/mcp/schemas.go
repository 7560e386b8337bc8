package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchDeclarationsTool returns the tool definition for search_declarations
func searchDeclarationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_declarations",
		Description: "Structurally search a source tree for function, struct, or enum declarations matching a query shape",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the source tree root",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query shape, e.g. 'fn(i32, i32) -> i32', 'struct { count: u64 }', 'enum Shape { Circle(f64) }'",
				},
				"extension": map[string]interface{}{
					"type":        "string",
					"description": "Source-file extension to search, without the dot",
					"default":     "rs",
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report server version and shard-cache statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
