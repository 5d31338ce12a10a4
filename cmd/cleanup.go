package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dbbackup/internal/backup"
	"dbbackup/internal/display"
)

var cleanupDryRun bool

// cleanupCmd prunes stored backups without taking new ones.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune old backups according to the retention policy",
	Long: `Cleanup lists the stored backups of every configured database and
deletes the ones older than the keep count, except backups taken on the
first day of a month, which are retained as long-term archives. Files
whose names cannot be parsed are reported and never deleted.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "report what would be deleted without deleting")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	config, err := buildConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	orchestrator, err := backup.NewOrchestrator(config, logger)
	if err != nil {
		return err
	}

	out := display.NewService(config.Quiet)
	results, err := orchestrator.Cleanup(cmd.Context(), cleanupDryRun)
	if err != nil {
		out.Error("cleanup failed: %v", err)
		return err
	}

	failed := 0
	for _, result := range results {
		if cleanupDryRun {
			out.Info("%s: would delete %d, keeping %d", result.Database, result.Deleted, result.Kept)
		} else {
			out.Info("%s: deleted %d, keeping %d", result.Database, result.Deleted, result.Kept)
		}
		for _, entry := range result.Entries {
			switch entry.Status {
			case backup.CleanupStatusParseFailed:
				out.Warning("%s: skipped unrecognized file %s", result.Database, entry.Filename)
			case backup.CleanupStatusDeleteFailed:
				out.Warning("%s: failed to delete %s: %s", result.Database, entry.Filename, entry.Error)
			}
		}
		failed += result.Failed
	}

	if failed > 0 {
		return fmt.Errorf("%d deletions failed", failed)
	}
	return nil
}
