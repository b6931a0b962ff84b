package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maic-lab/ragcore/internal/chunkstore"
)

func newStatusCmd() *cobra.Command {
	var jsonOut bool
	var migrateMarker bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index readiness",
		Long: `Report whether the index is READY, BUILDING, or MISSING, plus the
current generation and chunk count.

--migrate-marker rewrites a readiness marker left behind by older
releases ("ready", "ok", "done", "true") into the current format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOut, migrateMarker)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&migrateMarker, "migrate-marker", false, "Rewrite a legacy readiness marker before reporting")
	return cmd
}

func runStatus(cmd *cobra.Command, jsonOut, migrateMarker bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if migrateMarker {
		migrated, err := chunkstore.MigrateMarker(a.store.Root())
		if err != nil {
			return err
		}
		if migrated {
			fmt.Fprintln(out, "Migrated legacy readiness marker.")
			a.tracker.Invalidate()
		}
	}

	status := a.tracker.Status()

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintf(out, "State:      %s\n", status.State)
	if status.Generation != "" {
		fmt.Fprintf(out, "Generation: %s\n", status.Generation)
	}
	if status.State == chunkstore.StateReady {
		fmt.Fprintf(out, "Chunks:     %d\n", status.ChunkCount)
	}
	if status.Message != "" {
		fmt.Fprintf(out, "Detail:     %s\n", status.Message)
	}
	return nil
}
