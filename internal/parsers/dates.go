package parsers

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/mess-import/internal/types"
)

// SentinelDate replaces a join date that cannot be read.
var SentinelDate = time.Date(1902, time.January, 1, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order against text cells after stripping
// surrounding quotes. The first is the legacy "June 15, 2008" form.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
}

// Date parses a join date. Date cells are used as stored, number cells are
// read as spreadsheet serials and text is matched against the known
// layouts. Anything else yields SentinelDate.
func Date(cell types.RawCell) Result {
	switch cell.Kind {
	case types.KindDate:
		return OK(truncateDay(cell.Time))

	case types.KindNumber:
		if cell.Number > 0 {
			if t, err := excelize.ExcelDateToTime(cell.Number, false); err == nil {
				return OK(truncateDay(t))
			}
		}
		return Degrade(SentinelDate, "date serial %v out of range", cell.Number)

	case types.KindEmpty:
		return Degrade(SentinelDate, "blank date")
	}

	text := strings.Trim(cell.String(), `"' `)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return OK(t)
		}
	}
	return Degrade(SentinelDate, "unrecognized date %q", cell.String())
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
