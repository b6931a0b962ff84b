// Package cmd provides the CLI commands for ragcore.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maic-lab/ragcore/internal/logging"
	"github.com/maic-lab/ragcore/pkg/version"
)

var (
	cfgPath        string
	logLevel       string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the ragcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragcore",
		Short: "Index lifecycle and retrieval for a document corpus",
		Long: `ragcore builds, serves, and archives a chunked retrieval index.

Documents are chunked into a generation-based store, queried with
lexical TF-IDF ranking, and backed up to a release registry with
checksummed archives.

Typical flow:
  ragcore index          build and publish a new generation
  ragcore search "..."   query the current generation
  ragcore backup         upload the current generation
  ragcore restore        recover an index from the registry`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("ragcore version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (default ragcore.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = teardownLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newRestoreCmd())
	cmd.AddCommand(newVersionsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if logLevel != "" {
		logCfg.Level = logLevel
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Logging must never block the actual operation.
		slog.Warn("log_setup_failed", slog.String("error", err.Error()))
		return nil
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
