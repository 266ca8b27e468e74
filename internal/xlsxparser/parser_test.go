package xlsxparser

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/mess-import/internal/types"
)

func saveWorkbook(t *testing.T, f *excelize.File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestParse_CellKinds(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{" Account ", "Section", "Join Date", "Note"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Smith", 1.0, nil, "  "}))
	require.NoError(t, f.SetCellValue(sheet, "C2", time.Date(2008, 6, 15, 0, 0, 0, 0, time.UTC)))

	wb, err := Parse(saveWorkbook(t, f), Options{})
	require.NoError(t, err)

	s := wb.First()
	require.NotNil(t, s)
	assert.Equal(t, []string{"Account", "Section", "Join Date", "Note"}, s.Headers)
	require.Len(t, s.Rows, 1)

	row := s.Rows[0]
	assert.Equal(t, 2, row.Number)

	assert.Equal(t, types.KindText, row.Cell(0).Kind)
	assert.Equal(t, "Smith", row.Cell(0).String())

	assert.Equal(t, types.KindNumber, row.Cell(1).Kind)
	assert.Equal(t, 1.0, row.Cell(1).Number)

	assert.Equal(t, types.KindDate, row.Cell(2).Kind)
	assert.Equal(t, "2008-06-15", row.Cell(2).Time.Format("2006-01-02"))

	assert.True(t, row.Cell(3).IsBlank())
	assert.Equal(t, types.KindEmpty, row.Cell(10).Kind)
}

func TestParse_TextThatLooksNumeric(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Section"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"1.0"}))

	wb, err := Parse(saveWorkbook(t, f), Options{})
	require.NoError(t, err)

	cell := wb.First().Rows[0].Cell(0)
	assert.Equal(t, types.KindText, cell.Kind)
	assert.Equal(t, "1.0", cell.String())
}

func TestParse_MaxRowsAndSheetFilter(t *testing.T) {
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	_, err := f.NewSheet("Jobs")
	require.NoError(t, err)

	require.NoError(t, f.SetSheetRow(first, "A1", &[]any{"Name"}))
	for i := 2; i <= 6; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i)
		require.NoError(t, f.SetCellValue(first, cell, "row"))
	}
	require.NoError(t, f.SetSheetRow("Jobs", "A1", &[]any{"ID", "Name"}))

	path := saveWorkbook(t, f)

	wb, err := Parse(path, Options{MaxRows: 3})
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 2)
	assert.Len(t, wb.Sheets[0].Rows, 3)

	wb, err = Parse(path, Options{Sheets: []string{"Jobs"}})
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, "Jobs", wb.Sheets[0].Name)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.xlsx"), Options{})
	require.Error(t, err)
}

func TestIsDateFormat(t *testing.T) {
	custom := func(s string) *string { return &s }

	assert.True(t, isDateFormat(14, nil))
	assert.True(t, isDateFormat(22, nil))
	assert.True(t, isDateFormat(46, nil))
	assert.False(t, isDateFormat(2, nil))
	assert.True(t, isDateFormat(164, custom("mmmm d, yyyy")))
	assert.True(t, isDateFormat(164, custom("h:mm AM/PM")))
	assert.False(t, isDateFormat(164, custom(`"day "0`)))
	assert.False(t, isDateFormat(164, custom("[Red]0.00")))
}
