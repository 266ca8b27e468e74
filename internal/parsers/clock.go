package parsers

import (
	"math"
	"strings"
	"time"

	"github.com/ginjaninja78/mess-import/internal/types"
)

// clockLayouts are tried against upper-cased text with spaces removed.
var clockLayouts = []string{
	"3:04PM",
	"3PM",
	"15:04",
	"15:04:05",
	"3:04:05PM",
}

// Clock parses a time of day into the offset from midnight. Number and date
// cells hold a fraction of a day; text accepts "6:00 PM", "6pm" and "18:00".
func Clock(cell types.RawCell) Result {
	switch cell.Kind {
	case types.KindEmpty:
		return Degrade(time.Duration(0), "blank time")

	case types.KindDate:
		t := cell.Time
		return OK(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)

	case types.KindNumber:
		_, frac := math.Modf(cell.Number)
		if frac < 0 {
			return Degrade(time.Duration(0), "negative time %v", cell.Number)
		}
		minutes := math.Round(frac * 24 * 60)
		return OK(time.Duration(minutes) * time.Minute)
	}

	text := strings.ToUpper(strings.ReplaceAll(cell.String(), " ", ""))
	text = strings.ReplaceAll(text, ".", "")
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return OK(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		}
	}
	return Degrade(time.Duration(0), "unrecognized time %q", cell.String())
}
