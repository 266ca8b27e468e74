// =============================================================================
// Membership Importer - Schedule Import
// =============================================================================
//
// This module loads the job list and the shift schedule of a scheduling
// workbook. Sheets are dispatched by name:
//
//   Jobs                      one job per row
//   ... Shift Sch ... Fmt1    shifts with ISO text start times
//   ... Shift Sch ...         shifts with a date cell plus a time cell
//
// Other sheets are skipped. Jobs sheets load first so that shift rows can
// reference jobs defined anywhere in the workbook.
//
// Rows whose cells have the wrong kind are rejected and logged; the rest of
// the sheet continues. Shift rows reference members by username and accounts
// by name. A reference that matches nothing leaves the link empty.
//
// All sheets commit in one transaction.
//
// =============================================================================

package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/mess-import/internal/domain"
	"github.com/ginjaninja78/mess-import/internal/parsers"
	"github.com/ginjaninja78/mess-import/internal/store"
	"github.com/ginjaninja78/mess-import/internal/types"
	"github.com/ginjaninja78/mess-import/internal/validation"
)

// ISOTimeLayout is the text form of start times and deadlines.
const ISOTimeLayout = "2006-01-02T15:04"

// Sheet name markers.
const (
	JobsSheet     = "Jobs"
	ShiftMarker   = "Shift Sch"
	Format1Marker = "Fmt1"
)

// Logger is the logging surface the schedule import needs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Summary counts what a schedule import wrote.
type Summary struct {
	Jobs          int
	Tasks         int
	Rejected      []*validation.RowRejection
	SkippedSheets []string
}

// =============================================================================
// SHEET LAYOUTS
// =============================================================================

// shiftLayout gives the 0-based columns of a shift sheet format.
type shiftLayout struct {
	name     string
	start    int
	time     int // -1 when start carries the time
	deadline int
	hours    int
	unit     int
	freq     int
	username int
	account  int
	rules    []validation.Rule
}

var (
	format1 = shiftLayout{
		name: "fmt1", start: 1, time: -1, deadline: 2, hours: 3, unit: 5, freq: 6, username: 7, account: 8,
		rules: []validation.Rule{
			{Position: 0, Kinds: []types.CellKind{types.KindNumber}, Required: true},
			{Position: 1, Kinds: []types.CellKind{types.KindText}, Required: true},
		},
	}
	format2 = shiftLayout{
		name: "fmt2", start: 1, time: 2, deadline: 3, hours: 4, unit: 6, freq: 7, username: 8, account: 9,
		rules: []validation.Rule{
			{Position: 0, Kinds: []types.CellKind{types.KindNumber}, Required: true},
			{Position: 1, Kinds: []types.CellKind{types.KindDate}, Required: true},
		},
	}
	jobRules = []validation.Rule{
		{Position: 0, Kinds: []types.CellKind{types.KindNumber}, Required: true},
	}
)

// IsJobsSheet reports whether the sheet holds the job list.
func IsJobsSheet(name string) bool {
	return name == JobsSheet
}

// layoutFor returns the shift layout for a sheet name.
func layoutFor(name string) (shiftLayout, bool) {
	if !strings.Contains(name, ShiftMarker) {
		return shiftLayout{}, false
	}
	if strings.Contains(name, Format1Marker) {
		return format1, true
	}
	return format2, true
}

// =============================================================================
// IMPORT
// =============================================================================

// Import loads every jobs and shift sheet of the workbook through s in one
// transaction.
func Import(ctx context.Context, wb *types.Workbook, s store.Store, log Logger) (*Summary, error) {
	summary := &Summary{}

	err := s.Transaction(ctx, func(tx store.Store) error {
		for i := range wb.Sheets {
			sheet := &wb.Sheets[i]
			if !IsJobsSheet(sheet.Name) {
				continue
			}
			if err := importJobs(ctx, tx, sheet, summary, log); err != nil {
				return err
			}
		}

		for i := range wb.Sheets {
			sheet := &wb.Sheets[i]
			if IsJobsSheet(sheet.Name) {
				continue
			}
			layout, ok := layoutFor(sheet.Name)
			if !ok {
				log.Info("Skipping sheet", "sheet", sheet.Name)
				summary.SkippedSheets = append(summary.SkippedSheets, sheet.Name)
				continue
			}
			if err := importShifts(ctx, tx, sheet, layout, summary, log); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("Schedule import rolled back", "error", err)
		return nil, fmt.Errorf("schedule import %s: %w", wb.SourceFile, err)
	}

	log.Info("Schedule import committed",
		"jobs", summary.Jobs,
		"tasks", summary.Tasks,
		"rejected", len(summary.Rejected))
	return summary, nil
}

func (s *Summary) reject(log Logger, sheet string, err error) bool {
	var rej *validation.RowRejection
	if !errors.As(err, &rej) {
		return false
	}
	s.Rejected = append(s.Rejected, rej)
	log.Warn("Rejecting row", "sheet", sheet, "row", rej.Row, "reason", rej.Error())
	return true
}

// =============================================================================
// JOBS
// =============================================================================

func importJobs(ctx context.Context, tx store.Store, sheet *types.Sheet, summary *Summary, log Logger) error {
	log.Info("Processing sheet", "sheet", sheet.Name, "handler", "jobs")

	v, err := validation.New(sheet.Headers, jobRules...)
	if err != nil {
		return err
	}

	for _, row := range sheet.Rows {
		if row.IsEmpty() {
			continue
		}
		if err := v.Check(row); err != nil {
			summary.reject(log, sheet.Name, err)
			continue
		}

		job := makeJob(row)
		if err := tx.CreateJob(ctx, job); err != nil {
			return fmt.Errorf("sheet %s, row %d: create job %d: %w", sheet.Name, row.Number, *job.LegacyID, err)
		}
		summary.Jobs++
		log.Debug("Created job", "legacy_id", *job.LegacyID, "name", job.Name)
	}
	return nil
}

// makeJob reads a jobs row. Optional cells are used only when they have the
// expected kind.
func makeJob(row types.Row) *domain.Job {
	id := int64(row.Cell(0).Number)
	job := &domain.Job{
		LegacyID:        &id,
		Name:            row.Cell(1).String(),
		HoursMultiplier: decimal.NewFromInt(1),
	}
	if c := row.Cell(3); c.Kind == types.KindText {
		job.Description = c.String()
	}
	if c := row.Cell(4); c.Kind == types.KindNumber {
		job.Type = int(c.Number)
	}
	if c := row.Cell(5); c.Kind == types.KindNumber {
		job.FreezeDays = int(c.Number)
	}
	if c := row.Cell(6); c.Kind == types.KindNumber {
		job.HoursMultiplier = decimal.NewFromFloat(c.Number)
	}
	return job
}

// =============================================================================
// SHIFTS
// =============================================================================

func importShifts(ctx context.Context, tx store.Store, sheet *types.Sheet, layout shiftLayout, summary *Summary, log Logger) error {
	log.Info("Processing sheet", "sheet", sheet.Name, "handler", layout.name)

	v, err := validation.New(sheet.Headers, layout.rules...)
	if err != nil {
		return err
	}

	for _, row := range sheet.Rows {
		if row.IsEmpty() {
			continue
		}
		if err := v.Check(row); err != nil {
			summary.reject(log, sheet.Name, err)
			continue
		}

		task, rule, err := layout.makeTask(ctx, tx, row)
		if err != nil {
			if summary.reject(log, sheet.Name, err) {
				continue
			}
			return fmt.Errorf("sheet %s, row %d: %w", sheet.Name, row.Number, err)
		}

		if rule != nil {
			if err := tx.CreateRecurRule(ctx, rule); err != nil {
				return fmt.Errorf("sheet %s, row %d: %w", sheet.Name, row.Number, err)
			}
			task.RecurRuleID = &rule.ID
		}
		if err := tx.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("sheet %s, row %d: %w", sheet.Name, row.Number, err)
		}
		summary.Tasks++
		log.Debug("Created task", "sheet", sheet.Name, "row", row.Number, "time", task.Time)
	}
	return nil
}

// makeTask builds a task and its recurrence rule from a shift row. Bad
// cells come back as a *validation.RowRejection.
func (l shiftLayout) makeTask(ctx context.Context, tx store.Store, row types.Row) (*domain.Task, *domain.RecurRule, error) {
	legacyID := int64(row.Cell(0).Number)
	job, err := tx.FindJobByLegacyID(ctx, legacyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, rejection(row, 0, "no job with this id")
	}
	if err != nil {
		return nil, nil, err
	}

	start, err := l.startTime(row)
	if err != nil {
		return nil, nil, err
	}

	hours := parsers.Decimal(row.Cell(l.hours))
	if hours.IsDegraded() {
		return nil, nil, rejection(row, l.hours, hours.Degraded)
	}

	task := &domain.Task{
		JobID: &job.ID,
		Time:  start,
		Hours: hours.Value.(decimal.Decimal),
	}
	if deadline, ok := parseDeadline(row.Cell(l.deadline)); ok {
		task.Deadline = &deadline
	}

	if username := row.Cell(l.username).String(); username != "" {
		member, err := tx.FindMemberByUsername(ctx, username)
		switch {
		case err == nil:
			task.MemberID = &member.ID
		case !errors.Is(err, store.ErrNotFound):
			return nil, nil, err
		}
	}
	if name := row.Cell(l.account).String(); name != "" {
		account, err := tx.FindAccountByName(ctx, name)
		switch {
		case err == nil:
			task.AccountID = &account.ID
		case !errors.Is(err, store.ErrNotFound):
			return nil, nil, err
		}
	}

	rule, err := l.recurRule(row)
	if err != nil {
		return nil, nil, err
	}
	return task, rule, nil
}

func (l shiftLayout) startTime(row types.Row) (time.Time, error) {
	cell := row.Cell(l.start)

	if l.time < 0 {
		start, err := time.Parse(ISOTimeLayout, cell.String())
		if err != nil {
			return time.Time{}, rejection(row, l.start, "start is not "+ISOTimeLayout)
		}
		return start, nil
	}

	day := parsers.Date(cell)
	if day.IsDegraded() {
		return time.Time{}, rejection(row, l.start, day.Degraded)
	}
	clock := parsers.Clock(row.Cell(l.time))
	if clock.IsDegraded() {
		return time.Time{}, rejection(row, l.time, clock.Degraded)
	}
	return day.Value.(time.Time).Add(clock.Value.(time.Duration)), nil
}

func (l shiftLayout) recurRule(row types.Row) (*domain.RecurRule, error) {
	unit := strings.ToLower(row.Cell(l.unit).String())
	if unit == "" {
		return nil, nil
	}
	switch unit {
	case domain.RecurDay, domain.RecurWeek, domain.RecurMonth:
	default:
		return nil, rejection(row, l.unit, "unknown recurrence unit")
	}

	interval := 1
	if c := row.Cell(l.freq); c.Kind == types.KindNumber && c.Number >= 1 {
		interval = int(c.Number)
	} else if !c.IsBlank() {
		return nil, rejection(row, l.freq, "recurrence frequency must be a positive number")
	}
	return &domain.RecurRule{Unit: unit, Interval: interval}, nil
}

// parseDeadline accepts an ISO text deadline or a date cell. Anything else
// means no deadline.
func parseDeadline(cell types.RawCell) (time.Time, bool) {
	switch cell.Kind {
	case types.KindDate:
		return cell.Time, true
	case types.KindText:
		t, err := time.Parse(ISOTimeLayout, cell.String())
		return t, err == nil
	}
	return time.Time{}, false
}

func rejection(row types.Row, col int, msg string) *validation.RowRejection {
	cell := row.Cell(col)
	return &validation.RowRejection{
		Row:     row.Number,
		Column:  fmt.Sprintf("#%d", col+1),
		Kind:    cell.Kind,
		Value:   cell.Value,
		Message: msg,
	}
}
