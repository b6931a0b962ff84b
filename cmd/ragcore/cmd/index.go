package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and publish a new index generation",
		Long: `Scan the source directory, chunk every document, and publish the
result as the new current generation.

The previous generation keeps serving queries until the new one is
published atomically. A failed build leaves the previous generation
in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	documents, err := a.source.List(ctx)
	if err != nil {
		return fmt.Errorf("scan %s: %w", a.cfg.Paths.SourceDir, err)
	}
	slog.Info("index_scan_complete", slog.Int("documents", len(documents)))

	gen, err := a.indexer().BuildIndex(ctx, documents)
	if err != nil {
		return err
	}

	quality, err := a.store.LoadQuality(gen)
	if err != nil || quality == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Published generation %s (%d documents)\n", gen, len(documents))
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Published generation %s\n", gen)
	fmt.Fprintf(out, "  documents: %d\n", quality.DocumentCount)
	fmt.Fprintf(out, "  chunks:    %d (%d duplicates removed)\n", quality.ChunkCount, quality.DedupedChunks)
	fmt.Fprintf(out, "  tokens:    min %d / avg %.1f / max %d\n", quality.MinTokens, quality.AvgTokens, quality.MaxTokens)
	return nil
}
