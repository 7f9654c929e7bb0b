package main

import (
	"errors"

	"github.com/spf13/cobra"

	mdhttp "github.com/fyrsmithlabs/mdsearch/internal/http"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
)

type previewOptions struct {
	limit int
}

func newPreviewCmd(g *globalOptions) *cobra.Command {
	opts := &previewOptions{}

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show how a document would be chunked",
		Long: `Split FILE ("-" for stdin) exactly as ingest would and print the character
count, the number of chunks and the first headings. Nothing is embedded or
stored.

Examples:
  mdsearch preview README.md
  mdsearch preview --limit 20 docs/guide.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, g, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", retrieval.DefaultPreviewHeadings, "number of headings to list")
	return cmd
}

func runPreview(cmd *cobra.Command, g *globalOptions, opts *previewOptions, path string) error {
	if opts.limit < 0 {
		return errors.New("--limit must not be negative")
	}
	text, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	var res retrieval.PreviewResult
	if g.serverURL != "" {
		res, err = mdhttp.NewClient(g.serverURL, nil).Preview(cmd.Context(), text, opts.limit)
		if err != nil {
			return err
		}
	} else {
		cfg, err := g.loadConfig()
		if err != nil {
			return err
		}
		res = retrieval.Preview(retrieval.ConfigFrom(cfg).Segmenter(), text, opts.limit)
	}

	renderPreview(cmd.OutOrStdout(), displayName(path), res)
	return nil
}
