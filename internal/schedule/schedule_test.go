package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/mess-import/internal/domain"
	"github.com/ginjaninja78/mess-import/internal/logger"
	"github.com/ginjaninja78/mess-import/internal/store"
	"github.com/ginjaninja78/mess-import/internal/types"
)

func row(n int, cells ...types.RawCell) types.Row {
	return types.Row{Number: n, Cells: cells}
}

func jobsSheet() types.Sheet {
	return types.Sheet{
		Name:    JobsSheet,
		Headers: []string{"ID", "Name", "Category", "Description", "Type", "Freeze Days", "Multiplier"},
		Rows: []types.Row{
			row(2, types.Number(1), types.Text("Cashier"), types.Empty(), types.Text("Front register"), types.Number(2), types.Number(3), types.Number(1.5)),
			row(3, types.Number(2), types.Text("Recycling"), types.Empty(), types.Number(7), types.Text("n/a")),
			row(4, types.Text("notes below"), types.Text("do not import")),
		},
	}
}

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, mem.CreateAccount(ctx, &domain.Account{Name: "Smith"}))
	user := &domain.User{Username: "johnsmit"}
	require.NoError(t, mem.CreateUser(ctx, user))
	require.NoError(t, mem.CreateMember(ctx, &domain.Member{User: user}))
	return mem
}

func TestMakeJob_OptionalCellsByKind(t *testing.T) {
	sheet := jobsSheet()

	job := makeJob(sheet.Rows[0])
	require.NotNil(t, job.LegacyID)
	assert.Equal(t, int64(1), *job.LegacyID)
	assert.Equal(t, "Cashier", job.Name)
	assert.Equal(t, "Front register", job.Description)
	assert.Equal(t, 2, job.Type)
	assert.Equal(t, 3, job.FreezeDays)
	assert.True(t, job.HoursMultiplier.Equal(decimal.RequireFromString("1.5")))

	job = makeJob(sheet.Rows[1])
	assert.Empty(t, job.Description)
	assert.Equal(t, 0, job.Type)
	assert.True(t, job.HoursMultiplier.Equal(decimal.NewFromInt(1)))
}

func TestImport_JobsAndShifts(t *testing.T) {
	day := time.Date(2009, 1, 7, 0, 0, 0, 0, time.UTC)
	evening := time.Date(1899, 12, 30, 18, 0, 0, 0, time.UTC)

	wb := &types.Workbook{SourceFile: "schedule.xlsx", Sheets: []types.Sheet{
		{
			Name:    "Shift Sch Fmt1",
			Headers: []string{"Job", "Start", "Deadline", "Hours", "", "Unit", "Freq", "Member", "Account"},
			Rows: []types.Row{
				row(2, types.Number(1), types.Text("2009-01-05T18:00"), types.Text("2009-01-06T12:00"),
					types.Number(2), types.Empty(), types.Text("Week"), types.Number(4), types.Text("johnsmit"), types.Text("Smith")),
				row(3, types.Number(99), types.Text("2009-01-05T18:00"), types.Empty(), types.Number(2)),
				row(4, types.Number(1), types.Date(day, 39820), types.Empty(), types.Number(2)),
			},
		},
		{
			Name:    "Shift Sch",
			Headers: []string{"Job", "Day", "Time", "Deadline", "Hours", "", "Unit", "Freq", "Member", "Account"},
			Rows: []types.Row{
				row(2, types.Number(2), types.Date(day, 39820), types.Date(evening, 0.75), types.Text("soon"),
					types.Number(2.5), types.Empty(), types.Text("month"), types.Number(1), types.Text("nobody"), types.Text("Nowhere")),
				row(3, types.Number(2), types.Text("2009-01-07"), types.Number(0.75)),
				row(4, types.Number(2), types.Date(day, 39820), types.Number(0.5), types.Empty(),
					types.Number(1), types.Empty(), types.Text("fortnight")),
			},
		},
		{Name: "Notes", Headers: []string{"anything"}},
		jobsSheet(),
	}}

	mem := seededStore(t)
	summary, err := Import(context.Background(), wb, mem, logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Jobs)
	assert.Equal(t, 2, summary.Tasks)
	assert.Len(t, summary.Rejected, 5)
	assert.Equal(t, []string{"Notes"}, summary.SkippedSheets)

	snap := mem.Snapshot()
	require.Len(t, snap.Tasks, 2)
	require.Len(t, snap.RecurRules, 2)

	fmt1 := snap.Tasks[0]
	assert.True(t, fmt1.Time.Equal(time.Date(2009, 1, 5, 18, 0, 0, 0, time.UTC)))
	require.NotNil(t, fmt1.Deadline)
	assert.True(t, fmt1.Deadline.Equal(time.Date(2009, 1, 6, 12, 0, 0, 0, time.UTC)))
	require.NotNil(t, fmt1.MemberID)
	assert.Equal(t, snap.Members[0].ID, *fmt1.MemberID)
	require.NotNil(t, fmt1.AccountID)
	assert.Equal(t, snap.Accounts[0].ID, *fmt1.AccountID)
	assert.Equal(t, domain.RecurWeek, snap.RecurRules[0].Unit)
	assert.Equal(t, 4, snap.RecurRules[0].Interval)

	fmt2 := snap.Tasks[1]
	assert.True(t, fmt2.Time.Equal(time.Date(2009, 1, 7, 18, 0, 0, 0, time.UTC)))
	assert.True(t, fmt2.Hours.Equal(decimal.RequireFromString("2.5")))
	assert.Nil(t, fmt2.Deadline)
	assert.Nil(t, fmt2.MemberID)
	assert.Nil(t, fmt2.AccountID)
	assert.Equal(t, domain.RecurMonth, snap.RecurRules[1].Unit)
}

func TestImport_RollsBackOnStoreError(t *testing.T) {
	sheet := jobsSheet()
	sheet.Rows = append(sheet.Rows, sheet.Rows[0])
	wb := &types.Workbook{Sheets: []types.Sheet{sheet}}

	mem := store.NewMemory()
	_, err := Import(context.Background(), wb, mem, logger.NewNop())
	require.Error(t, err)
	assert.Empty(t, mem.Snapshot().Jobs)
}

func TestLayoutFor(t *testing.T) {
	l, ok := layoutFor("Spring Shift Sch Fmt1")
	require.True(t, ok)
	assert.Equal(t, "fmt1", l.name)

	l, ok = layoutFor("Shift Sch 2009")
	require.True(t, ok)
	assert.Equal(t, "fmt2", l.name)

	_, ok = layoutFor("Members")
	assert.False(t, ok)
	assert.True(t, IsJobsSheet("Jobs"))
}
