package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Attendance flags.
//
//	Y  counted toward the yearly requirement
//	E  excused
//	M  makeup shift
//	U  unexcused
//	B  banked hours
var (
	attendanceHeader = regexp.MustCompile(`^(\d{4})Attendance[ _-]*([A-Za-z]{3}|\d{1,2})?`)
	attendanceToken  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/([YEMUB]{1,2})(\d+(?:\.\d+)?)?)?$`)
)

// DefaultAttendanceHours applies when a token gives no hours.
var DefaultAttendanceHours = decimal.NewFromInt(2)

// AttendanceEvent is one past shift read from the attendance grid.
type AttendanceEvent struct {
	Date        time.Time
	Flags       string
	Hours       decimal.Decimal
	Excused     bool
	Makeup      bool
	Banked      bool
	Unexcused   bool
	HoursWorked decimal.Decimal
}

// AttendanceColumn is a parsed attendance header.
type AttendanceColumn struct {
	Header string
	Year   int

	// Month is the month named by the header suffix, or 0.
	Month time.Month
}

// ParseAttendanceHeader recognizes headers like "2009Attendance" and
// "2009AttendanceDec".
func ParseAttendanceHeader(header string) (AttendanceColumn, bool) {
	m := attendanceHeader.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return AttendanceColumn{}, false
	}

	year, _ := strconv.Atoi(m[1])
	col := AttendanceColumn{Header: header, Year: year}

	if suffix := m[2]; suffix != "" {
		if n, err := strconv.Atoi(suffix); err == nil {
			if n >= 1 && n <= 12 {
				col.Month = time.Month(n)
			}
		} else if t, err := time.Parse("Jan", strings.ToUpper(suffix[:1])+strings.ToLower(suffix[1:])); err == nil {
			col.Month = t.Month()
		}
	}

	return col, true
}

// ParseAttendanceToken parses one "<month>/<day>[/<flags><hours>]" token.
func (c AttendanceColumn) ParseAttendanceToken(token string) (AttendanceEvent, error) {
	m := attendanceToken.FindStringSubmatch(token)
	if m == nil {
		return AttendanceEvent{}, fmt.Errorf("malformed attendance token %q", token)
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	flags := m[3]
	if flags == "M" {
		flags = "YM"
	}
	if !strings.ContainsAny(flags, "YEU") {
		return AttendanceEvent{}, fmt.Errorf("attendance token %q has none of Y, E or U", token)
	}

	hours := DefaultAttendanceHours
	if m[4] != "" {
		h, err := decimal.NewFromString(m[4])
		if err != nil {
			return AttendanceEvent{}, fmt.Errorf("attendance token %q: %w", token, err)
		}
		hours = h
	}

	year := c.Year
	if month == 12 && c.Month == time.December {
		month = 1
		year++
	}

	if month < 1 || month > 12 {
		return AttendanceEvent{}, fmt.Errorf("attendance token %q: no month %d", token, month)
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day {
		return AttendanceEvent{}, fmt.Errorf("attendance token %q: no day %d in month %d", token, day, month)
	}

	ev := AttendanceEvent{
		Date:      date,
		Flags:     flags,
		Hours:     hours,
		Excused:   strings.Contains(flags, "E"),
		Makeup:    strings.Contains(flags, "M"),
		Banked:    strings.Contains(flags, "B"),
		Unexcused: strings.Contains(flags, "U"),
	}
	if ev.Excused || ev.Unexcused {
		ev.HoursWorked = decimal.Zero
	} else {
		ev.HoursWorked = hours
	}
	return ev, nil
}

// ParseAttendanceCell splits a grid cell on whitespace and parses each
// token. Rejected tokens are reported, never fatal.
func (c AttendanceColumn) ParseAttendanceCell(text string) (events []AttendanceEvent, rejected []error) {
	for _, token := range strings.Fields(text) {
		ev, err := c.ParseAttendanceToken(token)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		events = append(events, ev)
	}
	return events, rejected
}
