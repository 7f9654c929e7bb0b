// Command mdsearch ingests markdown into a vector index and searches it.
//
// By default every command runs the pipeline in-process using the local
// configuration. With --server it talks to a running mdsearchd instead.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
)

// version is set via ldflags during build.
var version = "dev"

// globalOptions are the persistent root flags.
type globalOptions struct {
	configPath  string
	secretsPath string
	serverURL   string
	verbose     bool
	noColor     bool
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, render(errorStyle, "error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "mdsearch",
		Short: "Semantic search over markdown documents",
		Long: `mdsearch splits markdown documents on second-level headings, embeds each
chunk and stores it in a vector index for similarity search.

Examples:
  # Ingest a few files and search them
  mdsearch ingest README.md docs/guide.md
  mdsearch search "how do I configure the store"

  # Ingest a whole directory
  mdsearch ingest --dir ./docs --exclude "drafts/**"

  # See how a document would be chunked
  mdsearch preview notes.md

  # Use a running mdsearchd
  mdsearch --server http://127.0.0.1:9191 search "deployment"`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.noColor {
				disableColor()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml (default ~/.config/mdsearch/config.yaml)")
	flags.StringVar(&opts.secretsPath, "secrets", "", "optional secrets.toml overlay")
	flags.StringVar(&opts.serverURL, "server", "", "mdsearchd base URL; empty runs in-process")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline activity to stderr")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable styled output")

	cmd.AddCommand(
		newIngestCmd(opts),
		newSearchCmd(opts),
		newPreviewCmd(opts),
		newIndexCmd(opts),
	)
	return cmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		ConfigPath:  o.configPath,
		SecretsPath: o.secretsPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
