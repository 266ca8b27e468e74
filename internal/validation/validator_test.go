package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/mess-import/internal/types"
)

func row(n int, cells ...types.RawCell) types.Row {
	return types.Row{Number: n, Cells: cells}
}

func TestCheck_KindAndRequired(t *testing.T) {
	headers := []string{"Account", "Section"}
	v, err := New(headers,
		Rule{Column: "Account", Kinds: []types.CellKind{types.KindText}},
		Rule{Column: "Section", Required: true},
	)
	require.NoError(t, err)

	assert.NoError(t, v.Check(row(2, types.Text("Smith"), types.Number(1))))

	err = v.Check(row(3, types.Number(42), types.Number(1)))
	var rejection *RowRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, 3, rejection.Row)
	assert.Equal(t, "Account", rejection.Column)
	assert.Equal(t, types.KindNumber, rejection.Kind)
	assert.Contains(t, err.Error(), "expected text")

	err = v.Check(row(4, types.Text("Smith"), types.Text("  ")))
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "Section", rejection.Column)
	assert.Equal(t, "value is required", rejection.Message)
}

func TestCheck_EmptyCellPassesKindCheck(t *testing.T) {
	v, err := New(nil, Rule{Position: 3, Kinds: []types.CellKind{types.KindNumber}})
	require.NoError(t, err)

	assert.NoError(t, v.Check(row(2, types.Text("x"))))
}

func TestCheck_Positional(t *testing.T) {
	v, err := New(nil, Rule{Position: 0, Kinds: []types.CellKind{types.KindNumber}, Required: true})
	require.NoError(t, err)

	err = v.Check(row(7, types.Text("total")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column '#1'")
}

func TestNew_MissingHeader(t *testing.T) {
	_, err := New([]string{"Account"}, Rule{Column: "Section"})
	require.Error(t, err)
}

func TestFormatRejections(t *testing.T) {
	assert.Equal(t, "No rejected rows.", FormatRejections(nil))

	out := FormatRejections([]*RowRejection{{Row: 5, Column: "Account", Message: "expected text"}})
	assert.Contains(t, out, "1 row(s) rejected")
	assert.Contains(t, out, "row 5")
}
