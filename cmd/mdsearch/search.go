package main

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

type searchOptions struct {
	topK int
	json bool
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find the chunks most similar to a query",
		Long: `Embed QUERY and print the closest stored chunks, most similar first.
Each result shows its heading, similarity score (1 is identical), chunk
index, ingestion time, full chunk length and stored text.

Examples:
  mdsearch search "how do I rotate credentials"
  mdsearch search --top-k 10 deployment
  mdsearch search --json "error handling" | jq '.[0].metadata.heading'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 5, "maximum number of results")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print results as JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, g *globalOptions, opts *searchOptions, query string) error {
	if opts.topK < 1 {
		return errors.New("--top-k must be at least 1")
	}

	ctx := cmd.Context()
	sess, err := g.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	results, err := sess.backend.Search(ctx, query, opts.topK)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	renderSearch(cmd.OutOrStdout(), query, results)
	return nil
}
