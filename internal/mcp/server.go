package mcp

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/server"

	"github.com/declgrep/declgrep/internal/engine"
	"github.com/declgrep/declgrep/internal/index"
)

const (
	// ServerName is the MCP server name.
	ServerName = "declgrep"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
	// shardCacheSize bounds the per-file shard cache.
	shardCacheSize = 4096
)

// shardEntry is one cached per-file shard set, valid while the file's mtime
// and size are unchanged.
type shardEntry struct {
	modTimeNano int64
	size        int64
	shards      *index.ShardSet
}

// Server wraps the MCP server with the search engine and a per-file shard
// cache so repeated queries over an unchanged tree skip re-scanning. The
// cache lives only in this process; nothing is persisted across runs.
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
	cache  *lru.Cache[string, shardEntry]

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// NewServer creates a new MCP server instance around the given engine.
func NewServer(eng *engine.Engine) (*Server, error) {
	cache, err := lru.New[string, shardEntry](shardCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create shard cache: %w", err)
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		engine: eng,
		cache:  cache,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDeclarationsTool(), s.handleSearchDeclarations)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// cachedShards returns the shard set for one file, consulting the cache
// first. A file that fails to read or scan evicts any stale entry and
// reports the error so the caller can drop it.
func (s *Server) cachedShards(path string) (*index.ShardSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		s.cache.Remove(path)
		return nil, err
	}

	if entry, ok := s.cache.Get(path); ok &&
		entry.modTimeNano == info.ModTime().UnixNano() && entry.size == info.Size() {
		s.cacheHits.Add(1)
		return entry.shards, nil
	}

	s.cacheMisses.Add(1)
	set, err := engine.ShardFile(path)
	if err != nil {
		s.cache.Remove(path)
		return nil, err
	}

	s.cache.Add(path, shardEntry{
		modTimeNano: info.ModTime().UnixNano(),
		size:        info.Size(),
		shards:      set,
	})
	return set, nil
}
