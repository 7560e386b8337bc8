// Package engine orchestrates the search pipeline: discover files, extract
// declarations, build one shard set per file, and evaluate the parsed query
// against every shard.
//
// Extraction, shard construction, and per-shard query evaluation all fan out
// over a fixed worker pool and fan back in order-free.
// There is no shared mutable state on the data path: each worker owns its
// file's slot in a preallocated slice, the parsed query is read-only, and
// shards are read-only once built, so no locks are needed. Per-file read or
// scan failures drop the file and the run continues; only a query parse
// failure aborts the whole run.
package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/declgrep/declgrep/internal/index"
	"github.com/declgrep/declgrep/internal/matcher"
	"github.com/declgrep/declgrep/internal/query"
	"github.com/declgrep/declgrep/internal/scanner"
	"github.com/declgrep/declgrep/pkg/types"
)

// DefaultExtension is the source-file extension searched when none is
// configured.
const DefaultExtension = "rs"

// Config controls the engine's worker pool and file filter.
type Config struct {
	Workers   int    // concurrent workers (default: runtime.NumCPU())
	Extension string // source-file extension without the dot (default: "rs")
}

// Engine runs structural searches over a source tree. Safe for concurrent
// use; it holds no per-run state.
type Engine struct {
	workers int
	ext     string
}

// Result is one completed run. Locations is the merged match list with
// cross-file order unspecified. FilesSearched counts files whose content was
// read; a file that read fine but failed to scan is counted both searched
// and failed, matching the reported corpus size.
type Result struct {
	Locations     []types.Location
	FilesSearched int
	FilesFailed   int
}

// New creates an Engine, filling config defaults.
func New(cfg *Config) *Engine {
	e := &Engine{workers: runtime.NumCPU(), ext: DefaultExtension}
	if cfg != nil {
		if cfg.Workers > 0 {
			e.workers = cfg.Workers
		}
		if cfg.Extension != "" {
			e.ext = strings.TrimPrefix(cfg.Extension, ".")
		}
	}
	return e
}

// Search runs the whole pipeline for one query string under root. A query
// parse failure is returned immediately, before any file is touched.
func (e *Engine) Search(ctx context.Context, root, queryStr string) (*Result, error) {
	q, err := query.Parse(queryStr)
	if err != nil {
		return nil, err
	}

	files, err := DiscoverFiles(root, e.ext)
	if err != nil {
		return nil, err
	}

	shards, stats, err := e.BuildShards(ctx, files)
	if err != nil {
		return nil, err
	}

	locs, err := e.Evaluate(ctx, q, shards)
	if err != nil {
		return nil, err
	}

	return &Result{
		Locations:     locs,
		FilesSearched: stats.Searched,
		FilesFailed:   stats.Failed,
	}, nil
}

// DiscoverFiles walks root collecting every file with the given extension.
// Hidden directories are skipped. The returned order follows the walk; the
// pipeline does not depend on it.
func DiscoverFiles(root, ext string) ([]string, error) {
	suffix := "." + strings.TrimPrefix(ext, ".")
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, suffix) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// ShardStats counts the files the shard stages processed.
type ShardStats struct {
	Searched int
	Failed   int
}

// BuildShards runs the two parallel construction stages: extract every
// file's declarations, then build one shard set per surviving file. Files
// that fail to read or scan are dropped and counted; they never fail the
// run.
func (e *Engine) BuildShards(ctx context.Context, files []string) ([]*index.ShardSet, ShardStats, error) {
	var searched, failed atomic.Int32

	// Stage 1: parse + extract, one slot per file, no shared state.
	decls := make([][]types.Decl, len(files))
	dropped := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.workers)
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			ds, err := scanner.ScanFile(path)
			if err != nil {
				dropped[i] = true
				failed.Add(1)
				var se *scanner.ScanError
				if errors.As(err, &se) {
					// Read succeeded, structure didn't: the file still
					// counts toward the searched corpus.
					searched.Add(1)
				}
				return nil
			}
			searched.Add(1)
			decls[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ShardStats{}, err
	}

	// Stage 2: shard construction, again one slot per file.
	shards := make([]*index.ShardSet, len(files))
	g, gctx = errgroup.WithContext(ctx)
	for i, path := range files {
		if dropped[i] {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			set, err := index.Build(path, decls[i])
			if err != nil {
				failed.Add(1)
				return nil
			}
			shards[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ShardStats{}, err
	}

	out := make([]*index.ShardSet, 0, len(shards))
	for _, s := range shards {
		if s != nil {
			out = append(out, s)
		}
	}
	stats := ShardStats{Searched: int(searched.Load()), Failed: int(failed.Load())}
	return out, stats, nil
}

// ShardFile extracts and indexes a single file. Used by the server, which
// caches shard sets per file between queries.
func ShardFile(path string) (*index.ShardSet, error) {
	decls, err := scanner.ScanFile(path)
	if err != nil {
		return nil, err
	}
	return index.Build(path, decls)
}

// Evaluate fans the parsed query out across every shard and merges the
// per-file results by concatenation. Cross-file order is unspecified.
func (e *Engine) Evaluate(ctx context.Context, q *types.Decl, shards []*index.ShardSet) ([]types.Location, error) {
	perShard := make([][]types.Location, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.workers)
	for i, set := range shards {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			perShard[i] = matcher.Match(q, set)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []types.Location
	for _, locs := range perShard {
		merged = append(merged, locs...)
	}
	return merged, nil
}
