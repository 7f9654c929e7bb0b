// Mdsearchd serves markdown ingestion and semantic search over HTTP, or as
// an MCP server on stdio.
//
// Configuration is loaded from ~/.config/mdsearch/config.yaml (or --config),
// an optional secrets.toml, a .env file in the working directory, and
// MDSEARCH_* environment variables. See internal/config for details.
//
// Usage:
//
//	# HTTP API on 127.0.0.1:9191
//	mdsearchd
//
//	# MCP over stdio
//	mdsearchd --mcp
//
//	# Configure via environment
//	MDSEARCH_VECTORSTORE_PROVIDER=qdrant MDSEARCH_SERVER_HTTP_PORT=8080 mdsearchd
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

type options struct {
	configPath  string
	secretsPath string
	mcp         bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config.yaml (default ~/.config/mdsearch/config.yaml)")
	flag.StringVar(&opts.secretsPath, "secrets", "", "optional secrets.toml overlay")
	flag.BoolVar(&opts.mcp, "mcp", false, "serve MCP over stdio instead of HTTP")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  mdsearchd [--config FILE] [--secrets FILE] [--mcp]\n")
			fmt.Fprintf(os.Stderr, "  mdsearchd version\n")
			os.Exit(1)
		}
	}

	// A missing .env is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "mdsearchd: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("mdsearchd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}
