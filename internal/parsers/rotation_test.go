package parsers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/mess-import/internal/types"
)

func TestRotationTable(t *testing.T) {
	want := map[string]RotationCode{
		"A": {4, 0}, "B": {4, 1}, "C": {4, 2}, "D": {4, 3},
		"E": {6, 0}, "F": {6, 1}, "G": {6, 2}, "H": {6, 3}, "I": {6, 4}, "J": {6, 5},
	}
	for letter, code := range want {
		got, ok := Rotation(letter)
		require.True(t, ok, letter)
		assert.Equal(t, code, got, letter)
	}

	_, ok := Rotation("K")
	assert.False(t, ok)
	_, ok = Rotation("")
	assert.False(t, ok)
}

func TestResolve_DeadlineJob(t *testing.T) {
	r := NewShiftResolver(DefaultRotationConfig())

	res := r.Resolve(ShiftRequest{
		Job:      "Recycling",
		Day:      "Monday",
		Rotation: "A",
		Start:    types.Text("9:00 AM"),
		End:      types.Text("5:00 PM"),
	})
	require.False(t, res.IsDegraded(), res.Degraded)

	shift := res.Value.(*Shift)
	assert.Equal(t, time.Date(2009, time.January, 5, 23, 59, 0, 0, time.UTC), shift.Start)
	assert.True(t, decimal.NewFromInt(2).Equal(shift.Hours))
	assert.Equal(t, 4, shift.IntervalWeeks)
}

func TestResolve_SundayJob(t *testing.T) {
	r := NewShiftResolver(DefaultRotationConfig())

	res := r.Resolve(ShiftRequest{Job: "Sunday Cleaning", Day: "Wednesday", Rotation: "F"})
	require.False(t, res.IsDegraded(), res.Degraded)

	shift := res.Value.(*Shift)
	// Epoch + 1 week + 6 days.
	assert.Equal(t, time.Date(2009, time.January, 18, 23, 59, 0, 0, time.UTC), shift.Start)
	assert.Equal(t, time.Sunday, shift.Start.Weekday())
	assert.Equal(t, 6, shift.IntervalWeeks)
}

func TestResolve_RegularShift(t *testing.T) {
	r := NewShiftResolver(DefaultRotationConfig())

	res := r.Resolve(ShiftRequest{
		Job:      "Cashier",
		Day:      "Thu",
		Rotation: "c",
		Start:    types.Text("6:00 PM"),
		End:      types.Text("8:45 PM"),
	})
	require.False(t, res.IsDegraded(), res.Degraded)

	shift := res.Value.(*Shift)
	assert.Equal(t, time.Date(2009, time.January, 22, 18, 0, 0, 0, time.UTC), shift.Start)
	assert.Equal(t, time.Thursday, shift.Start.Weekday())
	assert.Equal(t, "2.75", shift.Hours.String())
}

func TestResolve_FailureIsDiagnostic(t *testing.T) {
	r := NewShiftResolver(DefaultRotationConfig())

	res := r.Resolve(ShiftRequest{Job: "Cashier", Day: "Monday", Rotation: "Q"})
	require.True(t, res.IsDegraded())
	diag, ok := res.Value.(string)
	require.True(t, ok)
	assert.Contains(t, diag, "Cashier")
	assert.Contains(t, diag, "Q")

	res = r.Resolve(ShiftRequest{Job: "Cashier", Day: "Someday", Rotation: "A",
		Start: types.Text("6pm"), End: types.Text("8pm")})
	assert.True(t, res.IsDegraded())

	res = r.Resolve(ShiftRequest{Job: "Cashier", Day: "Monday", Rotation: "A",
		Start: types.Text("soon"), End: types.Text("8pm")})
	assert.True(t, res.IsDegraded())
}

func TestResolve_NoJob(t *testing.T) {
	r := NewShiftResolver(DefaultRotationConfig())
	res := r.Resolve(ShiftRequest{Rotation: "Q"})
	assert.False(t, res.IsDegraded())
	assert.Nil(t, res.Value)
}

func TestResolve_ProxySteals(t *testing.T) {
	r := NewShiftResolver(DefaultRotationConfig())
	base := ShiftRequest{Job: "Recycling", Day: "Monday", Rotation: "A"}

	// The work-shift member is the proxy: only the proxy request gets it.
	stolen := base
	stolen.WorkShiftMember = "Robin Jones"
	stolen.ProxyShopper = "robin Smith"
	assert.True(t, ProxySteals(stolen.WorkShiftMember, stolen.ProxyShopper))

	stolen.ForProxy = false
	assert.Nil(t, r.Resolve(stolen).Value)
	stolen.ForProxy = true
	assert.NotNil(t, r.Resolve(stolen).Value)

	// Different prefixes: the primary keeps it.
	kept := base
	kept.WorkShiftMember = "John Smith"
	kept.ProxyShopper = "Jane Smith"
	assert.False(t, ProxySteals(kept.WorkShiftMember, kept.ProxyShopper))

	kept.ForProxy = true
	assert.Nil(t, r.Resolve(kept).Value)
	kept.ForProxy = false
	assert.NotNil(t, r.Resolve(kept).Value)
}

func TestProxySteals_ShortNames(t *testing.T) {
	// Without a proxy the primary keeps the shift.
	assert.False(t, ProxySteals("", ""))
	assert.False(t, ProxySteals("John Smith", " "))
	assert.True(t, ProxySteals("Al", "al"))
	assert.False(t, ProxySteals("Al", "Alan"))
}
