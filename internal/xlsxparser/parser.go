// =============================================================================
// Membership Importer - XLSX Row Source
// =============================================================================
//
// This module reads a legacy membership workbook and exposes every sheet as a
// header row plus data rows of typed cells. The legacy import scripts checked
// the stored cell type before parsing anything, so the kind of each cell is
// preserved here:
//
//   | Stored as                          | Kind       |
//   |------------------------------------|------------|
//   | shared or inline string            | text       |
//   | number without a date format       | number     |
//   | number with a date/time format     | date       |
//   | boolean, formula result, error     | text       |
//   | nothing                            | empty      |
//
// Date detection uses the cell style: built-in number formats 14-22 and
// 45-47, or any custom format containing a year, day or hour token.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/mess-import/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls how much of a workbook is read.
type Options struct {
	// MaxRows caps the number of data rows read per sheet.
	// A value of 0 means no limit.
	MaxRows int

	// Sheets restricts reading to the named sheets, in workbook order.
	// Empty means every sheet.
	Sheets []string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse opens an XLSX workbook and reads its sheets.
//
// PARAMETERS:
//   - path: The path to the workbook.
//   - opts: Row cap and sheet filter.
//
// RETURNS:
//   - The workbook with typed cells.
//   - An error if the file cannot be opened or a sheet cannot be read.
func Parse(path string, opts Options) (*types.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return ParseFile(f, path, opts)
}

// ParseFile reads an already opened workbook. source is recorded as the
// workbook's SourceFile.
func ParseFile(f *excelize.File, source string, opts Options) (*types.Workbook, error) {
	wb := &types.Workbook{SourceFile: source}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	r := &sheetReader{
		file:       f,
		date1904:   date1904,
		dateStyles: make(map[int]bool),
	}

	for _, name := range f.GetSheetList() {
		if len(opts.Sheets) > 0 && !contains(opts.Sheets, name) {
			continue
		}

		sheet, err := r.read(name, opts.MaxRows)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, *sheet)
	}

	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no readable sheets", source)
	}

	return wb, nil
}

// sheetReader carries per-workbook state while sheets are read.
type sheetReader struct {
	file     *excelize.File
	date1904 bool

	// dateStyles caches the date check per style index.
	dateStyles map[int]bool
}

// read converts one sheet. The first row is the header row.
func (r *sheetReader) read(name string, maxRows int) (*types.Sheet, error) {
	rows, err := r.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	sheet := &types.Sheet{Name: name}
	if len(rows) == 0 {
		return sheet, nil
	}

	for _, h := range rows[0] {
		sheet.Headers = append(sheet.Headers, strings.TrimSpace(h))
	}

	for i := 1; i < len(rows); i++ {
		if maxRows > 0 && len(sheet.Rows) >= maxRows {
			break
		}

		row := types.Row{Number: i + 1, Cells: make([]types.RawCell, len(rows[i]))}
		for col, value := range rows[i] {
			cell, err := r.cell(name, col, i, value)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			row.Cells[col] = cell
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

// cell builds a typed cell from its raw value and stored type.
func (r *sheetReader) cell(sheet string, col, row int, value string) (types.RawCell, error) {
	if value == "" {
		return types.Empty(), nil
	}

	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return types.RawCell{}, err
	}

	cellType, err := r.file.GetCellType(sheet, axis)
	if err != nil {
		return types.RawCell{}, err
	}

	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeBool, excelize.CellTypeError:
		return types.Text(value), nil
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return types.Text(value), nil
	}

	if cellType == excelize.CellTypeDate || r.isDateStyled(sheet, axis) {
		t, err := excelize.ExcelDateToTime(n, r.date1904)
		if err == nil {
			return types.Date(t, n), nil
		}
	}

	return types.Number(n), nil
}

// isDateStyled reports whether the cell's number format renders a date or
// time.
func (r *sheetReader) isDateStyled(sheet, axis string) bool {
	idx, err := r.file.GetCellStyle(sheet, axis)
	if err != nil || idx == 0 {
		return false
	}

	if isDate, ok := r.dateStyles[idx]; ok {
		return isDate
	}

	isDate := false
	if style, err := r.file.GetStyle(idx); err == nil {
		isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	r.dateStyles[idx] = isDate
	return isDate
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isDateFormat checks a built-in format id or a custom format code.
func isDateFormat(numFmt int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDateFormatCode(*custom)
	}
	return (numFmt >= 14 && numFmt <= 22) || (numFmt >= 45 && numFmt <= 47)
}

// isDateFormatCode looks for date or time tokens outside quoted literals and
// bracketed sections (colors, locales, elapsed-time markers).
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for _, ch := range strings.ToLower(code) {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		case ch == 'y' || ch == 'd' || ch == 'h':
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
