package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runTime = time.Date(2024, time.January, 15, 14, 30, 22, 0, time.UTC)

func TestArchiveInputFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "members.xlsx")
	require.NoError(t, os.WriteFile(input, []byte("data"), 0644))

	fm := NewFileManager(filepath.Join(dir, "out"), filepath.Join(dir, "archive"))
	fm.UseTimestampSubdirs = true
	require.NoError(t, fm.EnsureDirectories())

	archived, err := fm.ArchiveInputFile(input, runTime)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "archive", "2024", "01", "15", "members.xlsx"), archived)
	assert.False(t, FileExists(input))
	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestArchiveInputFile_Missing(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(dir, filepath.Join(dir, "archive"))

	_, err := fm.ArchiveInputFile(filepath.Join(dir, "nope.xlsx"), runTime)
	assert.Error(t, err)
}

func TestGenerateReportFileName(t *testing.T) {
	name := GenerateReportFileName("{input}_{date}_{uuid}", runTime, map[string]string{"input": "members"})

	assert.True(t, strings.HasPrefix(name, "members_20240115_"))
	assert.True(t, strings.HasSuffix(name, ".txt"))
	assert.NotEqual(t, name, GenerateReportFileName("{input}_{date}_{uuid}", runTime, map[string]string{"input": "members"}))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "members", BaseName("/tmp/in/members.xlsx"))
	assert.Equal(t, "schedule", BaseName("schedule"))
}

func TestWriteRunReport(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(dir, filepath.Join(dir, "archive"))

	path, err := fm.WriteRunReport(RunReport{
		Command:   "import",
		InputFile: "/data/members.xlsx",
		DryRun:    true,
		StartTime: runTime,
		EndTime:   runTime.Add(2 * time.Second),
		Stats: []Stat{
			{Label: "Accounts", Value: 3},
			{Label: "Members", Value: 5},
		},
		Rejected: []RejectedRow{
			{Sheet: "Members", Row: 7, Column: "Section", Message: "value is required"},
		},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "members_import_20240115_143024_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "dry run (in-memory store)")
	assert.Contains(t, text, "Accounts:")
	assert.Contains(t, text, "Row:     7")
	assert.Contains(t, text, "Column:  Section")
	assert.NotContains(t, text, "Archived:")
	assert.Contains(t, text, "Duration:   2s")
}
