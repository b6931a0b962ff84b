package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List backups available in the release registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersions(cmd.Context(), cmd, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func runVersions(ctx context.Context, cmd *cobra.Command, jsonOut bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := a.archiveManager(ctx)
	if err != nil {
		return err
	}

	artifacts, err := manager.Versions(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(artifacts)
	}

	if len(artifacts) == 0 {
		fmt.Fprintln(out, "No backups in the registry.")
		return nil
	}
	for _, art := range artifacts {
		fmt.Fprintf(out, "%s  %d bytes  %s  sha256:%s\n",
			art.Version, art.Size, art.CreatedAt.Format("2006-01-02 15:04"), art.Checksum)
	}
	return nil
}
