package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/mess-import/internal/types"
)

// RotationCode is the cadence and phase of a recurring shift.
type RotationCode struct {
	IntervalWeeks int
	OffsetWeeks   int
}

// rotationTable is fixed. A-D repeat every four weeks, E-J every six.
var rotationTable = map[string]RotationCode{
	"A": {4, 0}, "B": {4, 1}, "C": {4, 2}, "D": {4, 3},
	"E": {6, 0}, "F": {6, 1}, "G": {6, 2}, "H": {6, 3}, "I": {6, 4}, "J": {6, 5},
}

// Rotation looks up a rotation letter, ignoring case and surrounding space.
func Rotation(letter string) (RotationCode, bool) {
	code, ok := rotationTable[strings.ToUpper(strings.TrimSpace(letter))]
	return code, ok
}

// weekdays maps day names to their distance from Monday.
var weekdays = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// Weekday returns the zero-based distance of a day name from Monday.
// Full names and three-letter abbreviations are accepted.
func Weekday(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if d, ok := weekdays[name]; ok {
		return d, true
	}
	if len(name) >= 3 {
		for full, d := range weekdays {
			if strings.HasPrefix(full, name) {
				return d, true
			}
		}
	}
	return 0, false
}

// RotationConfig holds the tables the resolver reads.
type RotationConfig struct {
	// Epoch is the Monday on which offset zero starts.
	Epoch time.Time

	// LateStart is the time of day given to deadline and Sunday jobs.
	LateStart time.Duration

	DeadlineJobs []string
	SundayJobs   []string
}

// DefaultRotationConfig returns the stock tables.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		Epoch:        time.Date(2009, time.January, 5, 0, 0, 0, 0, time.UTC),
		LateStart:    23*time.Hour + 59*time.Minute,
		DeadlineJobs: []string{"Recycling", "Newsletter"},
		SundayJobs:   []string{"Sunday Cleaning"},
	}
}

// ShiftRequest carries the work-shift columns of one row.
type ShiftRequest struct {
	Job      string
	Day      string
	Rotation string
	Start    types.RawCell
	End      types.RawCell

	// WorkShiftMember and ProxyShopper decide who owns the shift.
	WorkShiftMember string
	ProxyShopper    string

	// ForProxy is true when resolving for the proxy shopper's group.
	ForProxy bool
}

// Shift is a resolved recurring shift.
type Shift struct {
	Job           string
	Start         time.Time
	Hours         decimal.Decimal
	IntervalWeeks int
}

// ShiftResolver computes first occurrences from rotation letters.
type ShiftResolver struct {
	cfg RotationConfig
}

// NewShiftResolver returns a resolver for the given tables.
func NewShiftResolver(cfg RotationConfig) *ShiftResolver {
	return &ShiftResolver{cfg: cfg}
}

// ProxySteals reports whether the shift belongs to the proxy shopper: a
// proxy is named and the first four lower-case characters of both names are
// equal.
func ProxySteals(workShiftMember, proxyShopper string) bool {
	if strings.TrimSpace(proxyShopper) == "" {
		return false
	}
	return prefix4(workShiftMember) == prefix4(proxyShopper)
}

func prefix4(s string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(s)))
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r)
}

// Resolve computes the shift for a request.
//
// RETURNS:
//   - OK(*Shift) when the shift belongs to the requester.
//   - OK(nil) when there is no job or the shift belongs to the other group.
//   - A degraded result with a diagnostic string when the shift cannot be
//     computed. The diagnostic belongs in the account note.
func (r *ShiftResolver) Resolve(req ShiftRequest) Result {
	job := strings.TrimSpace(req.Job)
	if job == "" {
		return OK(nil)
	}

	if ProxySteals(req.WorkShiftMember, req.ProxyShopper) != req.ForProxy {
		return OK(nil)
	}

	shift, err := r.compute(job, req)
	if err != nil {
		return Degrade(diagnostic(req, err), "%v", err)
	}
	return OK(shift)
}

func (r *ShiftResolver) compute(job string, req ShiftRequest) (*Shift, error) {
	code, ok := Rotation(req.Rotation)
	if !ok {
		return nil, fmt.Errorf("unknown rotation %q", req.Rotation)
	}

	var (
		day   int
		start time.Duration
		hours decimal.Decimal
	)

	switch {
	case containsFold(r.cfg.DeadlineJobs, job):
		d, ok := Weekday(req.Day)
		if !ok {
			return nil, fmt.Errorf("unknown day %q", req.Day)
		}
		day, start, hours = d, r.cfg.LateStart, decimal.NewFromInt(2)

	case containsFold(r.cfg.SundayJobs, job):
		day, start, hours = weekdays["sunday"], r.cfg.LateStart, decimal.NewFromInt(2)

	default:
		d, ok := Weekday(req.Day)
		if !ok {
			return nil, fmt.Errorf("unknown day %q", req.Day)
		}
		startRes := Clock(req.Start)
		if startRes.IsDegraded() {
			return nil, fmt.Errorf("start: %s", startRes.Degraded)
		}
		endRes := Clock(req.End)
		if endRes.IsDegraded() {
			return nil, fmt.Errorf("end: %s", endRes.Degraded)
		}
		s, e := startRes.Value.(time.Duration), endRes.Value.(time.Duration)
		if e <= s {
			// Overnight shift.
			e += 24 * time.Hour
		}
		day, start = d, s
		hours = decimal.NewFromFloat((e - s).Hours()).Round(2)
	}

	first := r.cfg.Epoch.AddDate(0, 0, code.OffsetWeeks*7+day).Add(start)

	return &Shift{
		Job:           job,
		Start:         first,
		Hours:         hours,
		IntervalWeeks: code.IntervalWeeks,
	}, nil
}

// diagnostic renders whatever the row supplied for the account note.
func diagnostic(req ShiftRequest, err error) string {
	return fmt.Sprintf("unscheduled shift: %s %s %s %s-%s (%v)",
		req.Job, req.Day, req.Rotation, req.Start.String(), req.End.String(), err)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
