// =============================================================================
// Membership Importer - File Manager Utility
// =============================================================================
//
// This module handles the files around an import run:
//   - Directory management
//   - Input archival (moving an imported workbook out of the way)
//   - Report naming
//   - Rejected-row logs and run summaries
//
// ARCHIVAL STRATEGY:
//   - The input is moved to the archive directory only after a commit
//   - Dry runs and failed runs leave the input where it is
//   - Reports are written to the output directory for every run
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const rule = "================================================================================\n"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the importer.
type FileManager struct {
	// OutputDir receives reports.
	OutputDir string

	// ArchiveDir receives imported input files.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/members.xlsx
	UseTimestampSubdirs bool
}

// NewFileManager creates a FileManager for the given directories.
func NewFileManager(outputDir, archiveDir string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
	}
}

// EnsureDirectories creates the output and archive directories.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.ArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an imported file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//   - now: The run time, used for date subdirectories.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string, now time.Time) (string, error) {
	archivePath := fm.archivePath(filePath, now)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) archivePath(filePath string, now time.Time) string {
	fileName := filepath.Base(filePath)
	if !fm.UseTimestampSubdirs {
		return filepath.Join(fm.ArchiveDir, fileName)
	}
	return filepath.Join(
		fm.ArchiveDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		fileName,
	)
}

// =============================================================================
// REPORT NAMING
// =============================================================================

// GenerateReportFileName builds a unique report file name.
//
// PARAMETERS:
//   - format: The name pattern. Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - The run time (YYYYMMDD_HHMMSS)
//     {date}      - The run date (YYYYMMDD)
//     {input}     - The input file name without extension
//     plus any key of params.
//   - now: The run time.
//   - params: Extra placeholder values.
//
// RETURNS:
//   - The file name, always ending in ".txt".
//
// EXAMPLE:
//
//	format: "{input}_summary_{timestamp}_{uuid}"
//	params: {"input": "members"}
//	output: "members_summary_20240115_143022_a1b2c3d4-....txt"
func GenerateReportFileName(format string, now time.Time, params map[string]string) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".txt") {
		result += ".txt"
	}
	return result
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// =============================================================================
// RUN REPORTS
// =============================================================================

// Stat is one labelled count of a run.
type Stat struct {
	Label string
	Value int
}

// RejectedRow is one dropped input row.
type RejectedRow struct {
	Sheet   string
	Row     int
	Column  string
	Value   string
	Message string
}

// RunReport describes one import run.
type RunReport struct {
	Command     string
	InputFile   string
	ArchivePath string
	DryRun      bool
	StartTime   time.Time
	EndTime     time.Time

	// Stats are written in order.
	Stats    []Stat
	Rejected []RejectedRow
}

// WriteRunReport writes a run report to the output directory.
//
// RETURNS:
//   - The path to the report.
//   - An error if writing fails.
func (fm *FileManager) WriteRunReport(report RunReport) (string, error) {
	name := GenerateReportFileName("{input}_{command}_{timestamp}_{uuid}", report.EndTime, map[string]string{
		"input":   BaseName(report.InputFile),
		"command": report.Command,
	})
	path := filepath.Join(fm.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	defer file.Close()

	if err := writeReport(file, report); err != nil {
		return "", err
	}
	return path, nil
}

func writeReport(out io.Writer, report RunReport) error {
	w := bufio.NewWriter(out)

	mode := "commit"
	if report.DryRun {
		mode = "dry run (in-memory store)"
	}

	fmt.Fprintf(w, "Membership Importer - %s Summary\n", report.Command)
	w.WriteString(rule)
	fmt.Fprintf(w, "  Input:      %s\n", report.InputFile)
	if report.ArchivePath != "" {
		fmt.Fprintf(w, "  Archived:   %s\n", report.ArchivePath)
	}
	fmt.Fprintf(w, "  Mode:       %s\n", mode)
	fmt.Fprintf(w, "  Start Time: %s\n", report.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  End Time:   %s\n", report.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Duration:   %s\n\n", report.EndTime.Sub(report.StartTime))

	w.WriteString("Statistics:\n")
	for _, s := range report.Stats {
		fmt.Fprintf(w, "  %-18s %d\n", s.Label+":", s.Value)
	}

	if len(report.Rejected) > 0 {
		w.WriteString("\nRejected Rows:\n")
		w.WriteString("--------------------------------------------------------------------------------\n")
		for _, r := range report.Rejected {
			if r.Sheet != "" {
				fmt.Fprintf(w, "  Sheet:   %s\n", r.Sheet)
			}
			fmt.Fprintf(w, "  Row:     %d\n", r.Row)
			if r.Column != "" {
				fmt.Fprintf(w, "  Column:  %s\n", r.Column)
			}
			if r.Value != "" {
				fmt.Fprintf(w, "  Value:   %s\n", r.Value)
			}
			fmt.Fprintf(w, "  Message: %s\n\n", r.Message)
		}
	}

	w.WriteString(rule)
	w.WriteString("End of Summary\n")

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
