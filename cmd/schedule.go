package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/mess-import/internal/schedule"
	"github.com/ginjaninja78/mess-import/pkg/utils"
)

var scheduleDryRun bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule <workbook>",
	Short: "Import the jobs and shift schedule of a workbook",
	Long: `The schedule command loads the "Jobs" sheet and every "Shift Sch" sheet
of a scheduling workbook. Sheets named with "Fmt1" carry text start times;
other shift sheets carry a date cell and a time cell.

Shifts are linked to members by username and to accounts by name, so run
the membership import first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runSchedule(cmd.Context(), args[0], scheduleDryRun)
		return err
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(
		&scheduleDryRun,
		"dry-run",
		false,
		"Commit to an in-memory store instead of the database",
	)
}

func runSchedule(ctx context.Context, path string, dryRun bool) (string, error) {
	start := time.Now()

	cfg, log, err := loadRuntime()
	if err != nil {
		return "", err
	}
	defer log.Sync()

	wb, err := readWorkbook(path, cfg)
	if err != nil {
		return "", err
	}

	s, err := openStore(cfg, log, dryRun)
	if err != nil {
		return "", err
	}
	defer closeStore(s, log)

	summary, err := schedule.Import(ctx, wb, s, log)
	if err != nil {
		return "", err
	}

	return finishRun(cfg, log, utils.RunReport{
		Command:   "schedule",
		InputFile: path,
		DryRun:    dryRun,
		StartTime: start,
		EndTime:   time.Now(),
		Stats: []utils.Stat{
			{Label: "Jobs", Value: summary.Jobs},
			{Label: "Tasks", Value: summary.Tasks},
			{Label: "Skipped Sheets", Value: len(summary.SkippedSheets)},
			{Label: "Rejected Rows", Value: len(summary.Rejected)},
		},
		Rejected: rejectedRows("", summary.Rejected),
	})
}
