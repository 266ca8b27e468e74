package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ginjaninja78/mess-import/internal/domain"
	"github.com/ginjaninja78/mess-import/internal/mapping"
	"github.com/ginjaninja78/mess-import/internal/parsers"
	"github.com/ginjaninja78/mess-import/internal/store"
	"github.com/ginjaninja78/mess-import/internal/types"
)

// Fixed column names of the membership workbook.
const (
	ColSection       = "Section"
	ColActiveMembers = "Active Members"
	ColPrimaryMember = "Primary Member"
	ColJoinDate      = "Join Date"
	ColHasKey        = "Has key?"
	ColPhone         = "phone #"
	ColSecondPhone   = "second phone #"
	ColEmail         = "email"
	ColAddress       = "Street Address & Apt / City State / ZIP"
	ColProxyShopper  = "Proxy Shopper"
	ColProxyPhone    = "Proxy Shopper #"

	// Format version 2 only.
	ColWorkStatus      = "Work Status"
	ColShiftJob        = "Work Shift Job"
	ColShiftDay        = "Work Shift Day"
	ColShiftRotation   = "Work Shift Rotation"
	ColShiftStart      = "Work Shift Start"
	ColShiftEnd        = "Work Shift End"
	ColWorkShiftMember = "Work Shift Member"
)

// =============================================================================
// TARGETS
// =============================================================================

// memberTarget is the record member cells migrate into. Porters reach the
// owning account and the open transaction through it.
type memberTarget struct {
	*domain.Member

	account *domain.Account
	tx      store.Store

	// name is the display name as typed in the sheet.
	name string
}

// SubRecord exposes the member's user under the reserved "user" segment.
func (t *memberTarget) SubRecord(segment string) (mapping.Record, bool) {
	u, ok := t.Member.SubRecord(segment)
	if !ok {
		return nil, false
	}
	return u, true
}

func (t *memberTarget) ids() (member, account *uuid.UUID) {
	m, a := t.Member.ID, t.account.ID
	return &m, &a
}

// =============================================================================
// PORTERS
// =============================================================================

func portPhone(ctx context.Context, value any, t *memberTarget) error {
	number, _ := value.(string)
	if number == "" {
		return nil
	}
	return t.tx.CreatePhone(ctx, &domain.Phone{MemberID: t.Member.ID, Number: number})
}

func portEmail(ctx context.Context, value any, t *memberTarget) error {
	email, _ := value.(string)
	if email == "" {
		return nil
	}
	return t.tx.CreateEmail(ctx, &domain.Email{MemberID: t.Member.ID, Email: email})
}

func portAddress(ctx context.Context, value any, t *memberTarget) error {
	addr, ok := value.(parsers.Address)
	if !ok {
		return nil
	}
	return t.tx.CreateAddress(ctx, &domain.Address{
		MemberID:   t.Member.ID,
		Address1:   addr.Street,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
	})
}

// portShift writes a resolved shift as a recurring task. An unresolvable
// shift arrives as its diagnostic string and goes to the account note.
func portShift(ctx context.Context, value any, t *memberTarget) error {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		t.account.AppendNote(v)
		return nil
	case *parsers.Shift:
		if v == nil {
			return nil
		}
		job, err := t.tx.FindOrCreateJob(ctx, v.Job)
		if err != nil {
			return fmt.Errorf("job %q: %w", v.Job, err)
		}
		rule := &domain.RecurRule{Unit: domain.RecurWeek, Interval: v.IntervalWeeks}
		if err := t.tx.CreateRecurRule(ctx, rule); err != nil {
			return err
		}
		member, account := t.ids()
		return t.tx.CreateTask(ctx, &domain.Task{
			JobID:       &job.ID,
			MemberID:    member,
			AccountID:   account,
			Time:        v.Start,
			Hours:       v.Hours,
			RecurRuleID: &rule.ID,
		})
	}
	return fmt.Errorf("unexpected shift value %T", value)
}

func portAttendance(ctx context.Context, value any, t *memberTarget) error {
	events, _ := value.([]parsers.AttendanceEvent)
	for _, ev := range events {
		member, account := t.ids()
		err := t.tx.CreateTask(ctx, &domain.Task{
			MemberID:    member,
			AccountID:   account,
			Time:        ev.Date,
			Hours:       ev.Hours,
			Excused:     ev.Excused,
			Makeup:      ev.Makeup,
			Banked:      ev.Banked,
			HoursWorked: ev.HoursWorked,
		})
		if err != nil {
			return fmt.Errorf("attendance %s: %w", ev.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

// =============================================================================
// DERIVATIONS
// =============================================================================

func generatePassword(_ []string, _ types.Row, _ *types.Row) parsers.Result {
	p, err := parsers.Password()
	if err != nil {
		return parsers.Degrade("", "generate password: %v", err)
	}
	return parsers.OK(p)
}

// cellByHeader reads a named column of the row itself. Shift and attendance
// columns belong to the row that carries them, so there is no backup.
func cellByHeader(headers []string, row types.Row, name string) types.RawCell {
	for i, h := range headers {
		if h == name {
			return row.Cell(i)
		}
	}
	return types.Empty()
}

func resolveShift(resolver *parsers.ShiftResolver, forProxy bool) mapping.Derivation {
	return func(headers []string, row types.Row, _ *types.Row) parsers.Result {
		return resolver.Resolve(parsers.ShiftRequest{
			Job:             cellByHeader(headers, row, ColShiftJob).String(),
			Day:             cellByHeader(headers, row, ColShiftDay).String(),
			Rotation:        cellByHeader(headers, row, ColShiftRotation).String(),
			Start:           cellByHeader(headers, row, ColShiftStart),
			End:             cellByHeader(headers, row, ColShiftEnd),
			WorkShiftMember: cellByHeader(headers, row, ColWorkShiftMember).String(),
			ProxyShopper:    cellByHeader(headers, row, ColProxyShopper).String(),
			ForProxy:        forProxy,
		})
	}
}

// attendanceGrid collects the events of every attendance column in the row.
// Rejected tokens degrade the result but accepted events are kept.
func attendanceGrid(headers []string, row types.Row, _ *types.Row) parsers.Result {
	var (
		events   []parsers.AttendanceEvent
		rejected []string
	)
	for i, h := range headers {
		col, ok := parsers.ParseAttendanceHeader(h)
		if !ok {
			continue
		}
		text := row.Cell(i).String()
		if text == "" {
			continue
		}
		evs, errs := col.ParseAttendanceCell(text)
		events = append(events, evs...)
		for _, err := range errs {
			rejected = append(rejected, err.Error())
		}
	}

	if len(rejected) > 0 {
		return parsers.Degrade(events, "rejected attendance tokens: %s", strings.Join(rejected, "; "))
	}
	return parsers.OK(events)
}

// =============================================================================
// TABLES
// =============================================================================

// TableOptions selects and tunes the column tables.
type TableOptions struct {
	FormatVersion int

	// AccountFields maps money column headers to account fields. An empty
	// destination parses the column and discards it.
	AccountFields map[string]string

	Rotation parsers.RotationConfig

	// Cleaner rewrites raw cells before parsing. May be nil.
	Cleaner mapping.Cleaner
}

// Tables holds the resolved column tables of one sheet.
type Tables struct {
	// Control columns, read for routing only.
	Key      *mapping.Column[*domain.Account]
	Section  *mapping.Column[*domain.Account]
	HasProxy *mapping.Column[*domain.Account]

	Account *mapping.Table[*domain.Account]

	// The first column of Member and Proxy is always the username slug.
	Member *mapping.Table[*memberTarget]
	Proxy  *mapping.Table[*memberTarget]
}

// BuildTables resolves the column tables for a format version. A missing
// header fails with mapping.ErrMissingHeader.
func BuildTables(headers []string, opts TableOptions) (*Tables, error) {
	if opts.FormatVersion != 1 && opts.FormatVersion != 2 {
		return nil, fmt.Errorf("unsupported format version %d", opts.FormatVersion)
	}
	v2 := opts.FormatVersion == 2

	control, err := mapping.Build[*domain.Account](headers, opts.Cleaner,
		mapping.ColumnSpec[*domain.Account]{Name: "account", Source: mapping.Position(0), Parser: parsers.AccountName},
		mapping.ColumnSpec[*domain.Account]{Source: mapping.Header(ColSection), Parser: parsers.Section},
		mapping.ColumnSpec[*domain.Account]{Source: mapping.Header(ColProxyShopper), Parser: parsers.IsNonSpace},
		// Active Members is part of the fixed layout, so its header is
		// required, but the count is recomputed from the member groups.
		mapping.ColumnSpec[*domain.Account]{Source: mapping.Header(ColActiveMembers), Parser: parsers.IntOrOne},
	)
	if err != nil {
		return nil, err
	}

	accountSpecs := []mapping.ColumnSpec[*domain.Account]{
		{Name: "account name", Source: mapping.Position(0), Parser: parsers.AccountName, Write: mapping.Assign[*domain.Account]("name")},
		{Name: "account note", Source: mapping.Position(0), Parser: parsers.AccountNote, Write: mapping.Assign[*domain.Account]("note")},
	}
	if v2 {
		accountSpecs = append(accountSpecs, moneySpecs(headers, opts.AccountFields)...)
	}
	account, err := mapping.Build[*domain.Account](headers, opts.Cleaner, accountSpecs...)
	if err != nil {
		return nil, err
	}

	resolver := parsers.NewShiftResolver(opts.Rotation)

	memberSpecs := []mapping.ColumnSpec[*memberTarget]{
		{Name: "username", Source: mapping.Header(ColPrimaryMember), Parser: parsers.Username},
		{Source: mapping.Header(ColPrimaryMember), Parser: parsers.FirstName, Write: mapping.Assign[*memberTarget]("user.first_name")},
		{Source: mapping.Header(ColPrimaryMember), Parser: parsers.LastName, Write: mapping.Assign[*memberTarget]("user.last_name")},
		{Name: "password", Source: mapping.Derived(generatePassword), Write: mapping.Assign[*memberTarget]("user.password")},
		{Source: mapping.Header(ColJoinDate), Parser: parsers.Date, Write: mapping.Assign[*memberTarget]("user.date_joined")},
		{Source: mapping.Header(ColHasKey), Parser: parsers.IsYes, Write: mapping.Assign[*memberTarget]("has_key")},
		{Source: mapping.Header(ColPhone), Write: mapping.Custom[*memberTarget](portPhone)},
		{Source: mapping.Header(ColSecondPhone), Write: mapping.Custom[*memberTarget](portPhone)},
		{Source: mapping.Header(ColEmail), Write: mapping.Custom[*memberTarget](portEmail)},
		{Source: mapping.Header(ColAddress), Parser: parsers.ParseAddress, Write: mapping.Custom[*memberTarget](portAddress)},
	}
	proxySpecs := []mapping.ColumnSpec[*memberTarget]{
		{Name: "proxy username", Source: mapping.Header(ColProxyShopper), Parser: parsers.Username},
		{Source: mapping.Header(ColProxyShopper), Parser: parsers.FirstName, Write: mapping.Assign[*memberTarget]("user.first_name")},
		{Source: mapping.Header(ColProxyShopper), Parser: parsers.LastName, Write: mapping.Assign[*memberTarget]("user.last_name")},
		{Name: "proxy password", Source: mapping.Derived(generatePassword), Write: mapping.Assign[*memberTarget]("user.password")},
		{Source: mapping.Header(ColProxyPhone), Write: mapping.Custom[*memberTarget](portPhone)},
	}

	if v2 {
		if err := requireHeaders(headers, ColShiftJob, ColShiftDay, ColShiftRotation, ColShiftStart, ColShiftEnd, ColWorkShiftMember); err != nil {
			return nil, err
		}
		memberSpecs = append(memberSpecs,
			mapping.ColumnSpec[*memberTarget]{Source: mapping.Header(ColWorkStatus), Parser: parsers.WorkStatus, Write: mapping.Assign[*memberTarget]("work_status")},
			mapping.ColumnSpec[*memberTarget]{Name: "work shift", Source: mapping.Derived(resolveShift(resolver, false)), Write: mapping.Custom[*memberTarget](portShift)},
			mapping.ColumnSpec[*memberTarget]{Name: "attendance", Source: mapping.Derived(attendanceGrid), Write: mapping.Custom[*memberTarget](portAttendance)},
		)
		proxySpecs = append(proxySpecs,
			mapping.ColumnSpec[*memberTarget]{Name: "proxy work shift", Source: mapping.Derived(resolveShift(resolver, true)), Write: mapping.Custom[*memberTarget](portShift)},
		)
	}

	member, err := mapping.Build[*memberTarget](headers, opts.Cleaner, memberSpecs...)
	if err != nil {
		return nil, err
	}
	proxy, err := mapping.Build[*memberTarget](headers, opts.Cleaner, proxySpecs...)
	if err != nil {
		return nil, err
	}

	return &Tables{
		Key:      control.Columns[0],
		Section:  control.Columns[1],
		HasProxy: control.Columns[2],
		Account:  account,
		Member:   member,
		Proxy:    proxy,
	}, nil
}

// moneySpecs maps the configured money columns in the order they appear in
// the sheet. Configured columns the sheet lacks go last, by name, and fail
// the table build.
func moneySpecs(sheetHeaders []string, fields map[string]string) []mapping.ColumnSpec[*domain.Account] {
	names := make([]string, 0, len(fields))
	for h := range fields {
		names = append(names, h)
	}
	sort.Strings(names)

	position := func(h string) int {
		for i, sh := range sheetHeaders {
			if sh == h {
				return i
			}
		}
		return len(sheetHeaders)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return position(names[i]) < position(names[j])
	})

	specs := make([]mapping.ColumnSpec[*domain.Account], 0, len(names))
	for _, h := range names {
		spec := mapping.ColumnSpec[*domain.Account]{Source: mapping.Header(h), Parser: parsers.Decimal}
		switch dest := fields[h]; dest {
		case "":
			spec.Write = mapping.Discard[*domain.Account]()
		case "note":
			spec.Parser = parsers.Text
			spec.Write = mapping.Assign[*domain.Account](dest)
		default:
			spec.Write = mapping.Assign[*domain.Account](dest)
		}
		specs = append(specs, spec)
	}
	return specs
}

func requireHeaders(headers []string, names ...string) error {
	for _, name := range names {
		found := false
		for _, h := range headers {
			if h == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w %q", mapping.ErrMissingHeader, name)
		}
	}
	return nil
}
