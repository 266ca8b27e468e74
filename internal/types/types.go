// =============================================================================
// Membership Importer - Shared Row Types
// =============================================================================
//
// This package contains the row-level types shared by the row sources
// (xlsxparser, csvparser) and the consumers (mapping, validation, importer,
// schedule). Keeping them here avoids import cycles between readers and the
// mapping engine.
//
// A workbook is a list of sheets. A sheet is one header row followed by data
// rows. Every cell carries an explicit kind so that call sites can check the
// kind before parsing, the same way the legacy spreadsheets were read.
//
// =============================================================================

package types

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CELL KINDS
// =============================================================================

// CellKind identifies how a raw cell value was stored in the source file.
type CellKind int

const (
	// KindEmpty is a cell with no value.
	KindEmpty CellKind = iota

	// KindText is a string cell.
	KindText

	// KindNumber is a numeric cell. Number holds the value.
	KindNumber

	// KindDate is a date or time cell. Number holds the spreadsheet serial
	// and Time holds the converted value.
	KindDate
)

// String returns a readable kind name for diagnostics.
func (k CellKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// =============================================================================
// RAW CELL
// =============================================================================

// RawCell is one cell value plus its kind.
type RawCell struct {
	// Kind determines which of the value fields is meaningful.
	Kind CellKind

	// Value is the textual value as stored in the file (untrimmed).
	// For number and date cells this is the raw numeric representation.
	Value string

	// Number is set for number and date cells.
	Number float64

	// Time is set for date cells.
	Time time.Time
}

// Empty returns an empty cell.
func Empty() RawCell {
	return RawCell{Kind: KindEmpty}
}

// Text returns a text cell.
func Text(s string) RawCell {
	if s == "" {
		return Empty()
	}
	return RawCell{Kind: KindText, Value: s}
}

// Number returns a number cell.
func Number(n float64) RawCell {
	return RawCell{Kind: KindNumber, Value: strconv.FormatFloat(n, 'f', -1, 64), Number: n}
}

// Date returns a date cell. serial is the spreadsheet serial value, if known.
func Date(t time.Time, serial float64) RawCell {
	return RawCell{Kind: KindDate, Value: t.Format("2006-01-02 15:04:05"), Number: serial, Time: t}
}

// String returns the trimmed textual value of the cell.
func (c RawCell) String() string {
	if c.Kind == KindEmpty {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// IsBlank reports whether the cell is empty or holds whitespace only.
func (c RawCell) IsBlank() bool {
	return c.String() == ""
}

// =============================================================================
// ROWS, SHEETS AND WORKBOOKS
// =============================================================================

// Row is one input line. Rows are never modified once read.
type Row struct {
	// Number is the 1-based row number in the source sheet.
	// Useful for error reporting.
	Number int

	// Cells holds the cells in column order.
	Cells []RawCell
}

// Cell returns the cell at a 0-based column index.
// Columns beyond the end of a short row are reported as empty.
func (r Row) Cell(index int) RawCell {
	if index < 0 || index >= len(r.Cells) {
		return Empty()
	}
	return r.Cells[index]
}

// IsEmpty reports whether every cell in the row is blank.
func (r Row) IsEmpty() bool {
	for _, c := range r.Cells {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// Sheet is a named table with one header row.
type Sheet struct {
	// Name is the sheet (tab) name. CSV sources use the file base name.
	Name string

	// Headers contains the trimmed header values from the first row.
	Headers []string

	// Rows contains the data rows in file order.
	Rows []Row
}

// HeaderIndex returns the position of the named header, or -1.
func (s *Sheet) HeaderIndex(name string) int {
	for i, h := range s.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Workbook is an ordered list of sheets from one input file.
type Workbook struct {
	// SourceFile is the path the workbook was read from.
	SourceFile string

	// Sheets contains the sheets in workbook order.
	Sheets []Sheet
}

// Sheet returns the sheet with the given name, or nil.
func (w *Workbook) Sheet(name string) *Sheet {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i]
		}
	}
	return nil
}

// First returns the first sheet, or nil when the workbook is empty.
func (w *Workbook) First() *Sheet {
	if len(w.Sheets) == 0 {
		return nil
	}
	return &w.Sheets[0]
}
