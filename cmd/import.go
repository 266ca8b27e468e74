// =============================================================================
// Membership Importer - Import Command
// =============================================================================
//
// COMMAND USAGE:
//   mess-import import <workbook> [flags]
//
// FLAGS:
//   --dry-run  : Commit to an in-memory store instead of the database
//   --format   : Override format_version from the configuration (1 or 2)
//
// PROCESSING PIPELINE:
//   1. Load configuration and build the logger
//   2. Read the workbook (.xlsx) or CSV export (.csv)
//   3. Collect the first sheet into account aggregators
//   4. Commit every aggregator in one transaction
//   5. Archive the input (committed runs, when configured)
//   6. Write the summary report
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/mess-import/internal/importer"
	"github.com/ginjaninja78/mess-import/pkg/utils"
)

// importFlags holds the local flags of the import command.
type importFlags struct {
	dryRun bool
	format int
}

var importOpts importFlags

var importCmd = &cobra.Command{
	Use:   "import <workbook>",
	Short: "Import the membership sheet of a workbook",
	Long: `The import command reads the first sheet of a membership workbook and
loads its accounts and members into the record store.

Rows are grouped by account. Primary rows (section 1.0) open an account,
supplemental rows (4.0) replace its members, and status rows (2.0, 3.0,
5.0, 6.0) flag them. Bad field values are logged and replaced by empty
values; rows with the wrong shape are rejected and logged.

Nothing is written unless the whole sheet reads cleanly. A duplicate
primary row or a missing column header aborts the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runImport(cmd.Context(), args[0], importOpts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(
		&importOpts.dryRun,
		"dry-run",
		false,
		"Commit to an in-memory store instead of the database",
	)

	importCmd.Flags().IntVar(
		&importOpts.format,
		"format",
		0,
		"Input format version (1 or 2); 0 uses format_version from the configuration",
	)
}

// runImport runs the import pipeline and returns the report path.
func runImport(ctx context.Context, path string, flags importFlags) (string, error) {
	start := time.Now()

	cfg, log, err := loadRuntime()
	if err != nil {
		return "", err
	}
	defer log.Sync()

	if flags.format != 0 {
		cfg.FormatVersion = flags.format
		if err := cfg.Validate(); err != nil {
			return "", fmt.Errorf("--format: %w", err)
		}
	}

	opts, err := importOptions(cfg)
	if err != nil {
		return "", err
	}

	log.Info("Reading input", "file", path, "format_version", cfg.FormatVersion)
	wb, err := readWorkbook(path, cfg)
	if err != nil {
		return "", err
	}
	sheet := wb.First()
	if sheet == nil {
		return "", fmt.Errorf("workbook %s has no sheets", path)
	}

	batch, err := importer.Collect(sheet, opts, log)
	if err != nil {
		log.Error("Import aborted", "file", path, "error", err)
		return "", err
	}

	s, err := openStore(cfg, log, flags.dryRun)
	if err != nil {
		return "", err
	}
	defer closeStore(s, log)

	summary, err := batch.Commit(ctx, s)
	if err != nil {
		return "", err
	}

	return finishRun(cfg, log, utils.RunReport{
		Command:   "import",
		InputFile: path,
		DryRun:    flags.dryRun,
		StartTime: start,
		EndTime:   time.Now(),
		Stats: []utils.Stat{
			{Label: "Rows Read", Value: summary.RowsRead},
			{Label: "Accounts", Value: summary.Accounts},
			{Label: "Members", Value: summary.Members},
			{Label: "Skipped Rows", Value: summary.SkippedRows},
			{Label: "Rejected Rows", Value: summary.RejectedRows},
		},
		Rejected: rejectedRows(sheet.Name, batch.Rejections),
	})
}
