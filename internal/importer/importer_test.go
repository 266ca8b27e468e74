package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/mess-import/internal/domain"
	"github.com/ginjaninja78/mess-import/internal/logger"
	"github.com/ginjaninja78/mess-import/internal/mapping"
	"github.com/ginjaninja78/mess-import/internal/parsers"
	"github.com/ginjaninja78/mess-import/internal/store"
	"github.com/ginjaninja78/mess-import/internal/types"
)

var v1Headers = []string{
	"Account", ColSection, ColActiveMembers, ColPrimaryMember, ColJoinDate, ColHasKey,
	ColPhone, ColSecondPhone, ColEmail, ColAddress, ColProxyShopper, ColProxyPhone,
}

var v2Headers = append(append([]string{}, v1Headers...),
	"Balance", "Hours Balance", "Deposit", ColWorkStatus,
	ColShiftJob, ColShiftDay, ColShiftRotation, ColShiftStart, ColShiftEnd, ColWorkShiftMember,
	"2009AttendanceJan",
)

func rowOf(headers []string, n int, values map[string]string) types.Row {
	cells := make([]types.RawCell, len(headers))
	for i, h := range headers {
		cells[i] = types.Text(values[h])
	}
	return types.Row{Number: n, Cells: cells}
}

func sheetOf(headers []string, rows ...map[string]string) *types.Sheet {
	s := &types.Sheet{Name: "Members", Headers: headers}
	for i, r := range rows {
		s.Rows = append(s.Rows, rowOf(headers, i+2, r))
	}
	return s
}

func v1Options() Options {
	opts := DefaultOptions()
	opts.FormatVersion = 1
	return opts
}

func v2Options() Options {
	opts := DefaultOptions()
	opts.AccountFields = map[string]string{
		"Balance":       "balance",
		"Hours Balance": "hours_balance",
		"Deposit":       "",
	}
	return opts
}

func importSheet(t *testing.T, sheet *types.Sheet, opts Options) (*Batch, store.Snapshot) {
	t.Helper()
	mem := store.NewMemory()
	batch, err := Collect(sheet, opts, logger.NewNop())
	require.NoError(t, err)
	_, err = batch.Commit(context.Background(), mem)
	require.NoError(t, err)
	return batch, mem.Snapshot()
}

func TestImport_PrimaryRowScenario(t *testing.T) {
	sheet := sheetOf(v1Headers, map[string]string{
		"Account":        "Smith",
		ColSection:       "1.0",
		ColActiveMembers: "1",
		ColPrimaryMember: "John Smith",
		ColJoinDate:      `"June 15, 2008"`,
		ColHasKey:        "Yes",
		ColPhone:         "555-1234",
		ColEmail:         "john@example.org",
		ColAddress:       "12 Elm St / Boston MA / 02139",
	})

	_, snap := importSheet(t, sheet, v1Options())

	require.Len(t, snap.Accounts, 1)
	assert.Equal(t, "Smith", snap.Accounts[0].Name)

	user, ok := snap.User("johnsmit")
	require.True(t, ok)
	assert.Equal(t, "John", user.FirstName)
	assert.Equal(t, "Smith", user.LastName)
	assert.True(t, user.DateJoined.Equal(time.Date(2008, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, user.Password, 8)

	require.Len(t, snap.Members, 1)
	assert.True(t, snap.Members[0].HasKey)
	assert.Equal(t, domain.StatusActive, snap.Members[0].Status)
	assert.Equal(t, user.ID, snap.Members[0].UserID)

	require.Len(t, snap.AccountMembers, 1)
	assert.Equal(t, snap.Accounts[0].ID, snap.AccountMembers[0].AccountID)

	require.Len(t, snap.Phones, 1)
	assert.Equal(t, "555-1234", snap.Phones[0].Number)
	require.Len(t, snap.Emails, 1)
	require.Len(t, snap.Addresses, 1)
	assert.Equal(t, "Boston", snap.Addresses[0].City)
	assert.Equal(t, "MA", snap.Addresses[0].State)
	assert.Equal(t, "02139", snap.Addresses[0].PostalCode)
}

func TestImport_AccountNoteSplit(t *testing.T) {
	sheet := sheetOf(v1Headers, map[string]string{
		"Account":        "Best Fest NEEDS SHIFT",
		ColSection:       "1.0",
		ColPrimaryMember: "Ann Best",
	})

	batch, snap := importSheet(t, sheet, v1Options())

	_, ok := batch.Account("Best Fest")
	assert.True(t, ok)
	acct, ok := snap.Account("Best Fest")
	require.True(t, ok)
	assert.Equal(t, "NEEDS SHIFT", acct.Note)
}

func TestImport_SupplementalRowsReplacePrimaryMembers(t *testing.T) {
	sheet := sheetOf(v1Headers,
		map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith", ColJoinDate: "June 15, 2008", ColHasKey: "Yes"},
		map[string]string{"Account": "Smith", ColSection: "4.0", ColPrimaryMember: "Jane Smith"},
		map[string]string{"Account": "Smith", ColSection: "4.0", ColPrimaryMember: "Bob Smith", ColHasKey: "No"},
	)

	batch, snap := importSheet(t, sheet, v1Options())

	agg, ok := batch.Account("Smith")
	require.True(t, ok)
	assert.Equal(t, CollectingSupplemental, agg.State)
	assert.Len(t, agg.Groups, 2)

	require.Len(t, snap.Members, 2)
	_, ok = snap.User("johnsmit")
	assert.False(t, ok)

	jane, ok := snap.User("janesmit")
	require.True(t, ok)
	assert.True(t, jane.DateJoined.Equal(time.Date(2008, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, snap.Members[0].HasKey, "blank has-key falls back to the primary row")

	_, ok = snap.User("bobsmith")
	require.True(t, ok)
	assert.False(t, snap.Members[1].HasKey)
}

func TestImport_ProxyShopperGroup(t *testing.T) {
	sheet := sheetOf(v1Headers, map[string]string{
		"Account":        "Smith",
		ColSection:       "1.0",
		ColPrimaryMember: "John Smith",
		ColPhone:         "555-1234",
		ColProxyShopper:  "Mary Jones",
		ColProxyPhone:    "555-9999",
	})

	_, snap := importSheet(t, sheet, v1Options())

	require.Len(t, snap.Members, 2)
	mary, ok := snap.User("maryjone")
	require.True(t, ok)
	assert.Equal(t, "Mary", mary.FirstName)
	assert.Equal(t, "Jones", mary.LastName)

	require.Len(t, snap.Phones, 2)
	assert.Equal(t, "555-9999", snap.Phones[1].Number)
	assert.Equal(t, snap.Members[1].ID, snap.Phones[1].MemberID)
}

func TestImport_UsernameCollisions(t *testing.T) {
	sheet := sheetOf(v1Headers,
		map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith"},
		map[string]string{"Account": "Smithson", ColSection: "1.0", ColPrimaryMember: "John Smithson"},
		map[string]string{"Account": "Nobody", ColSection: "1.0", ColPrimaryMember: "!!"},
	)

	_, snap := importSheet(t, sheet, v1Options())

	for _, name := range []string{"johnsmit", "johnsmit1", parsers.BlankUsername} {
		_, ok := snap.User(name)
		assert.True(t, ok, name)
	}
}

func TestImport_StatusSections(t *testing.T) {
	sheet := sheetOf(v1Headers,
		map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith", ColProxyShopper: "Mary Jones"},
		map[string]string{"Account": "Smith", ColSection: "2.0", ColPrimaryMember: "mary jones"},
		map[string]string{"Account": "Smith", ColSection: "5.0"},
		map[string]string{"Account": "Jones", ColSection: "1.0", ColPrimaryMember: "Ann Jones"},
		map[string]string{"Account": "Jones", ColSection: "6.0"},
		map[string]string{"Account": "Ghost", ColSection: "3.0"},
	)

	batch, snap := importSheet(t, sheet, v1Options())

	statuses := map[string]string{}
	for _, m := range snap.Members {
		for _, u := range snap.Users {
			if u.ID == m.UserID {
				statuses[u.Username] = m.Status
			}
		}
	}
	assert.Equal(t, domain.StatusActive, statuses["johnsmit"])
	assert.Equal(t, domain.StatusLeave, statuses["maryjone"])
	assert.Equal(t, domain.StatusDeparted, statuses["annjones"])

	smith, ok := snap.Account("Smith")
	require.True(t, ok)
	assert.True(t, smith.EBTOnly)

	last := batch.Diagnostics[len(batch.Diagnostics)-1]
	assert.Equal(t, OutcomeSkipped, last.Result)
	assert.Equal(t, "Ghost", last.Account)
}

func TestImport_StatusRowNamesOneWordMember(t *testing.T) {
	sheet := sheetOf(v1Headers,
		map[string]string{"Account": "Cher", ColSection: "1.0", ColPrimaryMember: "Cher", ColProxyShopper: "Sonny Bono"},
		map[string]string{"Account": "Cher", ColSection: "6.0", ColPrimaryMember: "cher"},
	)

	_, snap := importSheet(t, sheet, v1Options())

	statuses := map[string]string{}
	for _, m := range snap.Members {
		for _, u := range snap.Users {
			if u.ID == m.UserID {
				statuses[u.Username] = m.Status
			}
		}
	}
	assert.Equal(t, domain.StatusDeparted, statuses["cher"])
	assert.Equal(t, domain.StatusActive, statuses["sonnybon"])
}

func TestImport_MoneyNotesFollowSheetOrder(t *testing.T) {
	sheet := sheetOf(v2Headers, map[string]string{
		"Account":        "Smith",
		ColSection:       "1.0",
		ColPrimaryMember: "John Smith",
		"Balance":        "owes dues",
		"Hours Balance":  "ahead on hours",
		"Deposit":        "deposit returned",
	})
	opts := v2Options()
	opts.AccountFields = map[string]string{"Balance": "note", "Hours Balance": "note", "Deposit": "note"}

	_, snap := importSheet(t, sheet, opts)

	acct, ok := snap.Account("Smith")
	require.True(t, ok)
	assert.Equal(t, "owes dues\nahead on hours\ndeposit returned", acct.Note)
}

func TestImport_AddressWithoutStreet(t *testing.T) {
	sheet := sheetOf(v1Headers, map[string]string{
		"Account":        "Smith",
		ColSection:       "1.0",
		ColPrimaryMember: "John Smith",
		ColAddress:       " / Boston MA / 02139",
	})

	_, snap := importSheet(t, sheet, v1Options())

	require.Len(t, snap.Addresses, 1)
	assert.Empty(t, snap.Addresses[0].Address1)
	assert.Equal(t, "Boston", snap.Addresses[0].City)
	assert.Equal(t, "MA", snap.Addresses[0].State)
	assert.Equal(t, "02139", snap.Addresses[0].PostalCode)
}

func TestImport_ActiveMembersCountIsRecomputed(t *testing.T) {
	sheet := sheetOf(v1Headers, map[string]string{
		"Account":        "Smith",
		ColSection:       "1.0",
		ColActiveMembers: "7",
		ColPrimaryMember: "John Smith",
	})

	_, snap := importSheet(t, sheet, v1Options())
	assert.Len(t, snap.Members, 1)

	var headers []string
	for _, h := range v1Headers {
		if h != ColActiveMembers {
			headers = append(headers, h)
		}
	}
	_, err := Collect(sheetOf(headers), v1Options(), logger.NewNop())
	assert.ErrorIs(t, err, mapping.ErrMissingHeader)
}

func TestCollect_SkipsAndRejects(t *testing.T) {
	sheet := sheetOf(v1Headers,
		map[string]string{"Account": "Jones", ColSection: "4.0", ColPrimaryMember: "Orphan Jones"},
		map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith"},
		map[string]string{"Account": "Smith", ColSection: "7.0"},
		map[string]string{"Account": "Smith"},
		map[string]string{},
	)
	sheet.Rows = append(sheet.Rows, types.Row{Number: 7, Cells: []types.RawCell{types.Number(42), types.Text("1.0")}})

	batch, err := Collect(sheet, v1Options(), logger.NewNop())
	require.NoError(t, err)

	require.Len(t, batch.Accounts, 1)
	require.Len(t, batch.Diagnostics, 5)
	assert.Equal(t, OutcomeSkipped, batch.Diagnostics[0].Result)
	assert.Equal(t, OutcomeLoaded, batch.Diagnostics[1].Result)
	assert.Equal(t, OutcomeSkipped, batch.Diagnostics[2].Result)
	assert.Equal(t, OutcomeRejected, batch.Diagnostics[3].Result)
	assert.Equal(t, OutcomeRejected, batch.Diagnostics[4].Result)

	require.Len(t, batch.Rejections, 2)
	assert.Equal(t, ColSection, batch.Rejections[0].Column)
	assert.Equal(t, types.KindNumber, batch.Rejections[1].Kind)
}

func TestCollect_MaxLines(t *testing.T) {
	sheet := sheetOf(v1Headers,
		map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith"},
		map[string]string{"Account": "Jones", ColSection: "1.0", ColPrimaryMember: "Ann Jones"},
	)
	opts := v1Options()
	opts.MaxLines = 2

	batch, err := Collect(sheet, opts, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, batch.Accounts, 1)
	assert.Equal(t, "Smith", batch.Accounts[0].Key)
}

func TestCollect_DuplicatePrimaryAborts(t *testing.T) {
	sheet := sheetOf(v1Headers,
		map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith"},
		map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "Jane Smith"},
	)

	batch, err := Collect(sheet, v1Options(), logger.NewNop())
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.True(t, errors.Is(err, ErrDuplicateAccount))
}

func TestCollect_MissingHeaderAborts(t *testing.T) {
	headers := []string{"Account", ColSection, ColPrimaryMember}
	_, err := Collect(sheetOf(headers), v1Options(), logger.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, mapping.ErrMissingHeader))

	_, err = Collect(sheetOf(v1Headers), v2Options(), logger.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, mapping.ErrMissingHeader))
}

func TestImport_FormatVersion2(t *testing.T) {
	sheet := sheetOf(v2Headers,
		map[string]string{
			"Account":           "Smith",
			ColSection:          "1.0",
			ColPrimaryMember:    "John Smith",
			"Balance":           "$12.50",
			"Deposit":           "50",
			ColWorkStatus:       "committee",
			ColShiftJob:         "Recycling",
			ColShiftDay:         "Monday",
			ColShiftRotation:    "A",
			ColWorkShiftMember:  "John Smith",
			"2009AttendanceJan": "3/5/YE2 3/6/M 3/7/B",
		},
		map[string]string{
			"Account":          "Jones",
			ColSection:         "1.0",
			ColPrimaryMember:   "Ann Jones",
			ColShiftJob:        "Cashier",
			ColShiftDay:        "Tuesday",
			ColShiftRotation:   "Z",
			ColShiftStart:      "6:00 PM",
			ColShiftEnd:        "8:00 PM",
			ColWorkShiftMember: "Ann Jones",
		},
	)

	_, snap := importSheet(t, sheet, v2Options())

	smith, ok := snap.Account("Smith")
	require.True(t, ok)
	assert.True(t, smith.Balance.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, smith.Deposit.IsZero(), "deposit is discarded")
	assert.Equal(t, parsers.WorkCommittee, snap.Members[0].WorkStatus)

	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, "Recycling", snap.Jobs[0].Name)
	require.Len(t, snap.RecurRules, 1)
	assert.Equal(t, domain.RecurWeek, snap.RecurRules[0].Unit)
	assert.Equal(t, 4, snap.RecurRules[0].Interval)

	require.Len(t, snap.Tasks, 3)
	shift := snap.Tasks[0]
	require.NotNil(t, shift.JobID)
	assert.True(t, shift.Time.Equal(time.Date(2009, 1, 5, 23, 59, 0, 0, time.UTC)), shift.Time)
	assert.True(t, shift.Hours.Equal(decimal.NewFromInt(2)))

	excused, makeup := snap.Tasks[1], snap.Tasks[2]
	assert.Nil(t, excused.JobID)
	assert.True(t, excused.Time.Equal(time.Date(2009, 3, 5, 0, 0, 0, 0, time.UTC)), excused.Time)
	assert.True(t, excused.Excused)
	assert.True(t, excused.HoursWorked.IsZero())
	assert.True(t, makeup.Makeup)
	assert.True(t, makeup.HoursWorked.Equal(decimal.NewFromInt(2)))

	jones, ok := snap.Account("Jones")
	require.True(t, ok)
	assert.Contains(t, jones.Note, "unscheduled shift")
}

func TestImport_ProxyStealsShift(t *testing.T) {
	sheet := sheetOf(v2Headers, map[string]string{
		"Account":          "Smith",
		ColSection:         "1.0",
		ColPrimaryMember:   "John Smith",
		ColProxyShopper:    "Robin Jones",
		ColShiftJob:        "Cashier",
		ColShiftDay:        "Wednesday",
		ColShiftRotation:   "E",
		ColShiftStart:      "18:00",
		ColShiftEnd:        "20:30",
		ColWorkShiftMember: "Robin J",
	})

	_, snap := importSheet(t, sheet, v2Options())

	require.Len(t, snap.Members, 2)
	require.Len(t, snap.Tasks, 1)
	require.NotNil(t, snap.Tasks[0].MemberID)
	assert.Equal(t, snap.Members[1].ID, *snap.Tasks[0].MemberID)
	assert.True(t, snap.Tasks[0].Time.Equal(time.Date(2009, 1, 7, 18, 0, 0, 0, time.UTC)), snap.Tasks[0].Time)
	assert.True(t, snap.Tasks[0].Hours.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 6, snap.RecurRules[0].Interval)
}

type failingStore struct {
	store.Store
}

func (f failingStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Transaction(ctx, func(tx store.Store) error {
		return fn(failingStore{tx})
	})
}

func (failingStore) CreateEmail(context.Context, *domain.Email) error {
	return errors.New("disk full")
}

func TestCommit_RollsBackOnStoreError(t *testing.T) {
	sheet := sheetOf(v1Headers,
		map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith"},
		map[string]string{"Account": "Jones", ColSection: "1.0", ColPrimaryMember: "Ann Jones", ColEmail: "ann@example.org"},
	)
	batch, err := Collect(sheet, v1Options(), logger.NewNop())
	require.NoError(t, err)

	mem := store.NewMemory()
	_, err = batch.Commit(context.Background(), failingStore{mem})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, mem.Snapshot().Accounts)
}

func TestCommit_CancelledContext(t *testing.T) {
	sheet := sheetOf(v1Headers, map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith"})
	batch, err := Collect(sheet, v1Options(), logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mem := store.NewMemory()
	_, err = batch.Commit(ctx, mem)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, mem.Snapshot().Accounts)
}

func TestRun_FirstSheet(t *testing.T) {
	wb := &types.Workbook{SourceFile: "members.xlsx", Sheets: []types.Sheet{
		*sheetOf(v1Headers, map[string]string{"Account": "Smith", ColSection: "1.0", ColPrimaryMember: "John Smith"}),
	}}

	summary, err := Run(context.Background(), wb, store.NewMemory(), v1Options(), logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accounts)
	assert.Equal(t, 1, summary.Members)
	assert.Equal(t, 1, summary.RowsRead)

	_, err = Run(context.Background(), &types.Workbook{}, store.NewMemory(), v1Options(), logger.NewNop())
	assert.Error(t, err)
}
