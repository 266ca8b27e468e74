// =============================================================================
// Membership Importer - Row Shape Preconditions
// =============================================================================
//
// This module checks the shape of an input row before the importer routes it.
// The legacy sheets were edited by hand, so a key column can hold a number
// where a name is expected, or a shift sheet can carry a stray note row.
// Such rows are rejected, logged, and dropped; the batch continues.
//
// A Rule names one column (by header or by position), the cell kinds it
// accepts, and whether the cell must be non-blank. Rules are resolved against
// the sheet headers once, before any row is checked.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/mess-import/internal/types"
)

// =============================================================================
// ROW REJECTION
// =============================================================================

// RowRejection describes why a row was dropped.
type RowRejection struct {
	// Row is the 1-based row number in the source sheet.
	Row int

	// Column is the header (or "#N" position) of the failing cell.
	Column string

	// Kind is the kind of the failing cell.
	Kind types.CellKind

	// Value is the raw value of the failing cell.
	Value string

	// Message says what was expected.
	Message string
}

// Error implements the error interface.
func (e *RowRejection) Error() string {
	return fmt.Sprintf("row %d, column '%s': %s (kind: %s, value: '%s')",
		e.Row, e.Column, e.Message, e.Kind, e.Value)
}

// =============================================================================
// RULES
// =============================================================================

// Rule is one column precondition.
type Rule struct {
	// Column is the header name. Leave empty to check by Position.
	Column string

	// Position is the 0-based column index, used when Column is empty.
	Position int

	// Kinds lists the accepted cell kinds. Empty accepts any kind.
	Kinds []types.CellKind

	// Required rejects blank cells.
	Required bool
}

// label names the rule's column for error messages.
func (r Rule) label() string {
	if r.Column != "" {
		return r.Column
	}
	return fmt.Sprintf("#%d", r.Position+1)
}

// Validator checks rows against rules resolved for one sheet.
type Validator struct {
	rules   []Rule
	indexes []int
}

// New resolves rules against the sheet headers. A rule naming a header that
// is not present is a configuration error.
func New(headers []string, rules ...Rule) (*Validator, error) {
	v := &Validator{rules: rules, indexes: make([]int, len(rules))}

	for i, rule := range rules {
		if rule.Column == "" {
			v.indexes[i] = rule.Position
			continue
		}

		idx := -1
		for j, h := range headers {
			if h == rule.Column {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("cannot find column %q for row check", rule.Column)
		}
		v.indexes[i] = idx
	}

	return v, nil
}

// Check returns a *RowRejection for the first failing rule, or nil.
func (v *Validator) Check(row types.Row) error {
	for i, rule := range v.rules {
		cell := row.Cell(v.indexes[i])

		if rule.Required && cell.IsBlank() {
			return &RowRejection{
				Row:     row.Number,
				Column:  rule.label(),
				Kind:    cell.Kind,
				Value:   cell.Value,
				Message: "value is required",
			}
		}

		if len(rule.Kinds) == 0 || cell.Kind == types.KindEmpty {
			continue
		}

		if !kindAllowed(cell.Kind, rule.Kinds) {
			return &RowRejection{
				Row:     row.Number,
				Column:  rule.label(),
				Kind:    cell.Kind,
				Value:   cell.Value,
				Message: "expected " + kindList(rule.Kinds),
			}
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func kindAllowed(kind types.CellKind, allowed []types.CellKind) bool {
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}

func kindList(kinds []types.CellKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, " or ")
}

// FormatRejections formats rejections for the run summary.
func FormatRejections(rejections []*RowRejection) string {
	if len(rejections) == 0 {
		return "No rejected rows."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("%d row(s) rejected:\n", len(rejections)))
	for i, r := range rejections {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, r.Error()))
	}

	return builder.String()
}
