// Package mcp exposes structural search over the Model Context Protocol.
//
// The server speaks MCP on stdio and registers two tools:
//
//	search_declarations: run one query shape against a source tree
//	get_status:          server version and shard-cache statistics
//
// Search semantics are identical to the CLI. The only server-specific
// behavior is the per-file shard cache: shard sets are cached keyed by path
// and invalidated by mtime+size, so repeated queries over an unchanged tree
// skip re-scanning. The cache is process-local; nothing persists across
// runs.
//
// Logging goes to stderr; stdout carries the MCP protocol.
package mcp
