package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/mess-import/internal/config"
	"github.com/ginjaninja78/mess-import/internal/csvparser"
	"github.com/ginjaninja78/mess-import/internal/importer"
	"github.com/ginjaninja78/mess-import/internal/logger"
	"github.com/ginjaninja78/mess-import/internal/parsers"
	"github.com/ginjaninja78/mess-import/internal/store"
	"github.com/ginjaninja78/mess-import/internal/transform"
	"github.com/ginjaninja78/mess-import/internal/types"
	"github.com/ginjaninja78/mess-import/internal/validation"
	"github.com/ginjaninja78/mess-import/internal/xlsxparser"
	"github.com/ginjaninja78/mess-import/pkg/utils"
)

// readWorkbook parses the input by extension. A CSV export becomes a
// single-sheet workbook.
func readWorkbook(path string, cfg *config.Config) (*types.Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsxparser.Parse(path, xlsxparser.Options{})
	case ".csv", ".txt":
		return csvparser.Parse(path, cfg.CSVSettings, 0)
	default:
		return nil, fmt.Errorf("unsupported input file %s: expected .xlsx or .csv", path)
	}
}

// openStore returns the configured database, or an empty in-memory store for
// a dry run.
func openStore(cfg *config.Config, log *logger.Logger, dryRun bool) (store.Store, error) {
	if dryRun {
		log.Info("Dry run: writing to an in-memory store")
		return store.NewMemory(), nil
	}
	return store.Open(cfg.Database, log)
}

// closeStore releases the store connection at the end of a run.
func closeStore(s store.Store, log *logger.Logger) {
	if err := s.Close(); err != nil {
		log.Warn("Failed to close store", "error", err)
	}
}

// rotationConfig converts the configured rotation tables.
func rotationConfig(cfg config.RotationConfig) (parsers.RotationConfig, error) {
	epoch, err := cfg.EpochDate()
	if err != nil {
		return parsers.RotationConfig{}, fmt.Errorf("rotation.epoch: %w", err)
	}
	hour, minute, err := cfg.LateStartClock()
	if err != nil {
		return parsers.RotationConfig{}, fmt.Errorf("rotation.late_start: %w", err)
	}
	return parsers.RotationConfig{
		Epoch:        epoch,
		LateStart:    time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute,
		DeadlineJobs: cfg.DeadlineJobs,
		SundayJobs:   cfg.SundayJobs,
	}, nil
}

// importOptions builds the membership import options from the
// configuration.
func importOptions(cfg *config.Config) (importer.Options, error) {
	cleaner, err := transform.New(cfg.TransformationRules)
	if err != nil {
		return importer.Options{}, err
	}
	rotation, err := rotationConfig(cfg.Rotation)
	if err != nil {
		return importer.Options{}, err
	}

	return importer.Options{
		TableOptions: importer.TableOptions{
			FormatVersion: cfg.FormatVersion,
			AccountFields: cfg.AccountFields,
			Rotation:      rotation,
			Cleaner:       cleaner,
		},
		MaxLines: cfg.MaxLines,
	}, nil
}

// rejectedRows converts row rejections for the run report.
func rejectedRows(sheet string, rejections []*validation.RowRejection) []utils.RejectedRow {
	rows := make([]utils.RejectedRow, 0, len(rejections))
	for _, r := range rejections {
		rows = append(rows, utils.RejectedRow{
			Sheet:   sheet,
			Row:     r.Row,
			Column:  r.Column,
			Value:   r.Value,
			Message: r.Message,
		})
	}
	return rows
}

// finishRun archives a committed input when configured and writes the run
// report.
func finishRun(cfg *config.Config, log *logger.Logger, report utils.RunReport) (string, error) {
	fm := utils.NewFileManager(cfg.OutputDir, cfg.ArchiveDir)
	fm.UseTimestampSubdirs = cfg.ArchiveByDate
	if err := fm.EnsureDirectories(); err != nil {
		return "", err
	}

	if cfg.ArchiveInput && !report.DryRun {
		archived, err := fm.ArchiveInputFile(report.InputFile, report.EndTime)
		if err != nil {
			return "", err
		}
		report.ArchivePath = archived
		log.Info("Input archived", "path", archived)
	}

	path, err := fm.WriteRunReport(report)
	if err != nil {
		return "", err
	}
	log.Info("Summary written", "path", path)
	return path, nil
}
