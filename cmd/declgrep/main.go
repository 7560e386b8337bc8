package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/declgrep/declgrep/internal/engine"
	"github.com/declgrep/declgrep/internal/mcp"
	"github.com/declgrep/declgrep/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// A .env file is optional; environment beats it either way.
	_ = godotenv.Load()

	var (
		root    = flag.String("root", envOr("DECLGREP_ROOT", "."), "source tree root to search")
		ext     = flag.String("ext", envOr("DECLGREP_EXT", engine.DefaultExtension), "source-file extension to search, without the dot")
		workers = flag.Int("workers", envIntOr("DECLGREP_WORKERS", runtime.NumCPU()), "number of concurrent workers")
		serve   = flag.Bool("serve", false, "run as an MCP server on stdio instead of a one-shot search")
		ver     = flag.Bool("version", false, "print version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *ver {
		fmt.Printf("declgrep\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		os.Exit(0)
	}

	eng := engine.New(&engine.Config{Workers: *workers, Extension: *ext})

	if *serve {
		runServer(eng)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "declgrep: %v\n\n", types.ErrMissingQuery)
		usage()
		os.Exit(1)
	}

	result, err := eng.Search(context.Background(), *root, flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "declgrep: %v\n", err)
		os.Exit(1)
	}

	if len(result.Locations) == 0 {
		fmt.Println("[no results]")
	} else {
		for _, loc := range result.Locations {
			fmt.Println(loc)
		}
	}

	noun := "files"
	if result.FilesSearched == 1 {
		noun = "file"
	}
	fmt.Printf("[searched in %d %s]\n", result.FilesSearched, noun)
}

// runServer starts the MCP stdio server with graceful shutdown. Logs go to
// stderr; stdout is reserved for the protocol.
func runServer(eng *engine.Engine) {
	log.SetOutput(os.Stderr)
	log.Printf("declgrep MCP server v%s starting...", version)

	srv, err := mcp.NewServer(eng)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <query>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nquery shapes:\n")
	fmt.Fprintf(os.Stderr, "  fn name(a: i32, b: i32) -> i32     function, exact structural match\n")
	fmt.Fprintf(os.Stderr, "  fn(i32, i32) -> i32                same, any name\n")
	fmt.Fprintf(os.Stderr, "  struct Name { count: u64 }         struct, any field criterion may match\n")
	fmt.Fprintf(os.Stderr, "  struct(i32, i32)                   tuple struct\n")
	fmt.Fprintf(os.Stderr, "  enum Name { Variant(f64) }         enum, name/variant/field criteria\n")
	fmt.Fprintf(os.Stderr, "\nflags:\n")
	flag.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
