package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maic-lab/ragcore/internal/archive"
)

func newRestoreCmd() *cobra.Command {
	var versionName string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Recover an index from the release registry",
		Long: `Download a backup archive, verify its checksum, and publish it as
the current generation.

A READY local index wins over the remote copy: without --force the
restore is a no-op. A corrupt archive is rejected without touching
the local index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRestore(cmd.Context(), cmd, versionName, force)
		},
	}

	cmd.Flags().StringVar(&versionName, "version", archive.Latest, "Backup version to restore")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite a READY local index")
	return cmd
}

func runRestore(ctx context.Context, cmd *cobra.Command, versionName string, force bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := a.archiveManager(ctx)
	if err != nil {
		return err
	}

	gen, err := manager.Restore(ctx, versionName, force)
	if err != nil {
		return err
	}

	status := a.tracker.Status()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Serving generation %s (%s, %d chunks)\n", gen, status.State, status.ChunkCount)
	return nil
}
