package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/shyim/backup-pruner/internal/config"
	"github.com/shyim/backup-pruner/internal/pruner"
	"github.com/shyim/backup-pruner/internal/report"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune [path]",
	Short: "Apply the retention policy once",
	Long: `Find backup files below path, group them by name and apply the retention
policy to every group. Backups no strategy wants to keep are deleted unless
--dry-run is given.`,
	Example: `  backup-pruner prune /var/backups -e tar -e tar.gz --dry-run
  backup-pruner prune /var/backups -e tar --policy last-n=14 --policy day-of-month=1 --policy delete-unset
  backup-pruner prune databases -e sql.gz --storage offsite.type=s3 --storage offsite.bucket=backups --pool offsite`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrune,
}

func init() {
	addPruneFlags(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg.Root = args[0]
	}

	setup, err := newPruneSetup()
	if err != nil {
		return err
	}

	result, err := setup.pruner.Run(cmd.Context(), setup.options)
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if failed := result.Failed(); failed > 0 {
		slog.Warn("some backups could not be deleted", "failed", failed, "error", result.Err())
		if cfg.FailOnError {
			return fmt.Errorf("%d backups could not be deleted", failed)
		}
	}

	return nil
}

func writeReport(w io.Writer, result *pruner.Result) error {
	summaries := result.Summaries()

	if cfg.Output == config.OutputJSON {
		return report.JSON(w, summaries)
	}

	return report.Text(w, summaries, report.IsTerminal(w))
}
