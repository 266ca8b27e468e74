// =============================================================================
// Membership Importer - CSV Row Source
// =============================================================================
//
// This module reads a CSV export of the membership workbook. Some of the
// legacy exports were saved from old spreadsheet programs in Latin-1 or
// UTF-16, so the input is decoded before it reaches encoding/csv.
//
// CSV has no stored cell types. Kinds are inferred:
//   - blank field           -> empty
//   - plain decimal number  -> number
//   - anything else         -> text
//
// Dates stay text; the date parsers accept the textual forms.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/mess-import/internal/config"
	"github.com/ginjaninja78/mess-import/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into a single-sheet workbook named after the file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter, header row and encoding.
//   - maxRows: Cap on data rows read. 0 means no limit.
//
// RETURNS:
//   - The workbook.
//   - An error if the file cannot be opened, decoded or parsed.
func Parse(filePath string, settings config.CSVSettings, maxRows int) (*types.Workbook, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	sheet, err := ParseReader(file, name, settings, maxRows)
	if err != nil {
		return nil, err
	}

	return &types.Workbook{SourceFile: filePath, Sheets: []types.Sheet{*sheet}}, nil
}

// ParseReader reads CSV data from r into a sheet with the given name.
func ParseReader(r io.Reader, name string, settings config.CSVSettings, maxRows int) (*types.Sheet, error) {
	decoder, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(bufio.NewReader(transform.NewReader(r, decoder)))
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	headerIndex := settings.HeaderRow - 1
	if headerIndex < 0 {
		headerIndex = 0
	}
	if len(allRows) <= headerIndex {
		return nil, fmt.Errorf("CSV file has no header row")
	}

	sheet := &types.Sheet{Name: name}
	for _, h := range allRows[headerIndex] {
		sheet.Headers = append(sheet.Headers, strings.TrimSpace(h))
	}

	for i := headerIndex + 1; i < len(allRows); i++ {
		if maxRows > 0 && len(sheet.Rows) >= maxRows {
			break
		}

		row := types.Row{Number: i + 1, Cells: make([]types.RawCell, len(allRows[i]))}
		for col, value := range allRows[i] {
			row.Cells[col] = inferCell(value)
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Legacy exports have ragged rows and stray quotes.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// decoderFor maps a configured encoding name to a decoder.
// A UTF-8 byte order mark is dropped in every case.
func decoderFor(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToUpper(strings.ReplaceAll(name, "_", "-")) {
	case "", "UTF-8", "UTF8":
		enc = unicode.UTF8
	case "UTF-16", "UTF16", "UTF-16LE":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "UTF-16BE":
		enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		enc = charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported CSV encoding %q", name)
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}

// inferCell assigns a kind to a CSV field.
func inferCell(value string) types.RawCell {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return types.Empty()
	}
	if isPlainNumber(trimmed) {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			// Keep the field text so leading zeros survive.
			return types.RawCell{Kind: types.KindNumber, Value: trimmed, Number: n}
		}
	}
	return types.Text(value)
}

// isPlainNumber accepts digits with an optional sign and one decimal point.
// Exponents, hex and "NaN" stay text.
func isPlainNumber(s string) bool {
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	digits, dots := 0, 0
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
