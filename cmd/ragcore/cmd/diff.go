package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maic-lab/ragcore/internal/chunkstore"
	"github.com/maic-lab/ragcore/internal/indexer"
)

func newDiffCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show drift between source documents and the current index",
		Long: `Compare the source directory against the current generation's
manifest by content hash. Touching a file without editing it does not
count as a change.

Exits with status 1 when drift exists, so scripts can gate a rebuild
on the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiff(cmd.Context(), cmd, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func runDiff(ctx context.Context, cmd *cobra.Command, jsonOut bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	documents, err := a.source.List(ctx)
	if err != nil {
		return err
	}

	var manifest *chunkstore.Manifest
	if gen, err := a.store.Current(); err == nil && gen != "" {
		manifest, err = a.store.LoadManifest(gen)
		if err != nil {
			return err
		}
	}

	result := indexer.Diff(documents, manifest)

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if result.InSync() {
		fmt.Fprintln(out, "Index is in sync with the source directory.")
	} else {
		for _, id := range result.Added {
			fmt.Fprintf(out, "added    %s\n", id)
		}
		for _, id := range result.Changed {
			fmt.Fprintf(out, "changed  %s\n", id)
		}
		for _, id := range result.Removed {
			fmt.Fprintf(out, "removed  %s\n", id)
		}
	}

	if !result.InSync() {
		return fmt.Errorf("%d added, %d changed, %d removed; run 'ragcore index' to rebuild",
			len(result.Added), len(result.Changed), len(result.Removed))
	}
	return nil
}
