package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect and administer the vector index",
	}
	cmd.AddCommand(
		newIndexCountCmd(g),
		newIndexCreateCmd(g),
		newIndexDeleteCmd(g),
	)
	return cmd
}

func newIndexCountCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := g.open(ctx, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			n, err := sess.backend.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
			return nil
		},
	}
}

func newIndexCreateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the index for the configured embedding dimension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.serverURL != "" {
				return fmt.Errorf("index create: %w", errRemoteUnsupported)
			}
			// Opening with ensureIndex creates it.
			sess, err := g.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.Close()

			fmt.Fprintln(cmd.OutOrStdout(), render(scoreStyle, "index ready"))
			return nil
		},
	}
}

func newIndexDeleteCmd(g *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the index and every stored chunk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.serverURL != "" {
				return fmt.Errorf("index delete: %w", errRemoteUnsupported)
			}
			if !yes {
				return errors.New("refusing to delete the index without --yes")
			}

			ctx := cmd.Context()
			sess, err := g.open(ctx, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.store.Drop(ctx); err != nil {
				return fmt.Errorf("failed to delete index: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render(scoreStyle, "index deleted"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
