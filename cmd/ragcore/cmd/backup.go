package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	var versionName string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload the current generation to the release registry",
		Long: `Pack the current READY generation into a checksummed archive and
upload it to the configured GitHub release registry.

Re-running a backup under the same version replaces the stored
archive, so an interrupted upload can simply be retried.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackup(cmd.Context(), cmd, versionName)
		},
	}

	cmd.Flags().StringVar(&versionName, "version", "", "Backup version name (default: generation ID)")
	return cmd
}

func runBackup(ctx context.Context, cmd *cobra.Command, versionName string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := a.archiveManager(ctx)
	if err != nil {
		return err
	}

	artifact, err := manager.Backup(ctx, versionName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Uploaded backup %s\n", artifact.Version)
	fmt.Fprintf(out, "  size:     %d bytes\n", artifact.Size)
	fmt.Fprintf(out, "  checksum: %s\n", artifact.Checksum)
	return nil
}
