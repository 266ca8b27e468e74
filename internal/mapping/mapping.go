// =============================================================================
// Membership Importer - Column Mapping Engine
// =============================================================================
//
// This module binds spreadsheet columns to record fields. It is the core of
// the import: every value that reaches the database passes through a
// ColumnSpec.
//
// A ColumnSpec has three parts:
//   - Source: where the raw value comes from (a header name, a fixed
//     position, or a derivation that sees the whole row)
//   - Parser: how the raw cell becomes a value (optional)
//   - Write:  how the value reaches a record. Exactly one of:
//       WriteNone    the value is parsed and then discarded
//       WriteAssign  the value is assigned to a field path on the record
//       WriteCustom  a porter function performs the write itself
//
// A Table is an ordered list of specs resolved against one header row.
// Resolving fails with ErrMissingHeader before any row is read.
//
// Binding a Table to a row yields BoundCells. When the row's raw value is
// blank and a backup row is supplied, the backup row's value is used
// instead, then cleaned and parsed.
//
// =============================================================================

package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/mess-import/internal/parsers"
	"github.com/ginjaninja78/mess-import/internal/types"
)

// ErrMissingHeader is returned by Build when a spec names a header the sheet
// does not have.
var ErrMissingHeader = errors.New("cannot find expected column")

// =============================================================================
// RECORDS
// =============================================================================

// Record accepts field assignments by name.
type Record interface {
	SetField(name string, value any) error
}

// Nested is implemented by records that own sub-records addressed by the
// first segment of a dotted path, e.g. "user.first_name".
type Nested interface {
	SubRecord(segment string) (Record, bool)
}

// =============================================================================
// SOURCES AND PARSERS
// =============================================================================

// Parser converts a raw cell into a value.
type Parser func(types.RawCell) parsers.Result

// Derivation computes a value from the full row. backup is nil unless the
// row is being bound with a backup row.
type Derivation func(headers []string, row types.Row, backup *types.Row) parsers.Result

// Source locates a column's raw value.
type Source struct {
	header   string
	position int
	derive   Derivation
}

// Header reads the column with the given header name.
func Header(name string) Source {
	return Source{header: name, position: -1}
}

// Position reads a fixed 0-based column.
func Position(index int) Source {
	return Source{position: index}
}

// Derived computes the value from the whole row.
func Derived(fn Derivation) Source {
	return Source{position: -1, derive: fn}
}

// Cleaner rewrites a raw cell before parsing. *transform.Transformer
// implements it.
type Cleaner interface {
	Clean(header string, cell types.RawCell) types.RawCell
}

// =============================================================================
// WRITE KINDS
// =============================================================================

// WriteKind selects how a bound value reaches a record.
type WriteKind int

const (
	WriteNone WriteKind = iota
	WriteAssign
	WriteCustom
)

func (k WriteKind) String() string {
	switch k {
	case WriteNone:
		return "none"
	case WriteAssign:
		return "assign"
	case WriteCustom:
		return "custom"
	}
	return "unknown"
}

// Porter performs a custom write of value onto target.
type Porter[T Record] func(ctx context.Context, value any, target T) error

// Write is the tagged union of write kinds.
type Write[T Record] struct {
	Kind   WriteKind
	Path   string
	Porter Porter[T]
}

// Discard parses the value and drops it.
func Discard[T Record]() Write[T] {
	return Write[T]{Kind: WriteNone}
}

// Assign sets the value at a dotted field path.
func Assign[T Record](path string) Write[T] {
	return Write[T]{Kind: WriteAssign, Path: path}
}

// Custom hands the value to a porter.
func Custom[T Record](p Porter[T]) Write[T] {
	return Write[T]{Kind: WriteCustom, Porter: p}
}

// =============================================================================
// COLUMN SPECIFICATION
// =============================================================================

// ColumnSpec declares one mapped column.
type ColumnSpec[T Record] struct {
	// Name labels the column in diagnostics. Defaults to the header.
	Name   string
	Source Source
	Parser Parser
	Write  Write[T]
}

// Column is a ColumnSpec resolved against a header row.
type Column[T Record] struct {
	ColumnSpec[T]

	index   int
	header  string
	headers []string
	cleaner Cleaner
}

// Label returns the diagnostic name of the column.
func (c *Column[T]) Label() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.header != "":
		return c.header
	case c.Write.Path != "":
		return c.Write.Path
	}
	return fmt.Sprintf("#%d", c.index+1)
}

// Index returns the resolved 0-based column, or -1 for derived columns.
func (c *Column[T]) Index() int {
	return c.index
}

// Fetch binds the column to a row. backup may be nil.
func (c *Column[T]) Fetch(row types.Row, backup *types.Row) BoundCell[T] {
	if c.Source.derive != nil {
		res := c.Source.derive(c.headers, row, backup)
		return BoundCell[T]{Column: c, Value: res.Value, Degraded: res.Degraded}
	}

	raw := row.Cell(c.index)
	if raw.IsBlank() && backup != nil {
		raw = backup.Cell(c.index)
	}
	if c.cleaner != nil {
		raw = c.cleaner.Clean(c.header, raw)
	}

	if c.Parser == nil {
		return BoundCell[T]{Column: c, Value: raw.String()}
	}
	res := c.Parser(raw)
	return BoundCell[T]{Column: c, Value: res.Value, Degraded: res.Degraded}
}

// =============================================================================
// BOUND CELL
// =============================================================================

// BoundCell is one column's parsed value for one row.
type BoundCell[T Record] struct {
	Column   *Column[T]
	Value    any
	Degraded string
}

// Migrate writes the value to target according to the column's write kind.
func (b BoundCell[T]) Migrate(ctx context.Context, target T) error {
	w := b.Column.Write
	switch w.Kind {
	case WriteNone:
		return nil
	case WriteAssign:
		return assign(target, w.Path, b.Value)
	case WriteCustom:
		return w.Porter(ctx, b.Value, target)
	}
	return fmt.Errorf("column %s: unknown write kind %d", b.Column.Label(), w.Kind)
}

func assign(target Record, path string, value any) error {
	segment, rest, nested := strings.Cut(path, ".")
	if !nested {
		return target.SetField(path, value)
	}

	n, ok := target.(Nested)
	if !ok {
		return fmt.Errorf("path %q: record has no sub-records", path)
	}
	sub, ok := n.SubRecord(segment)
	if !ok {
		return fmt.Errorf("path %q: no sub-record %q", path, segment)
	}
	return assign(sub, rest, value)
}

// =============================================================================
// MAPPING TABLE
// =============================================================================

// Table is an ordered list of resolved columns.
type Table[T Record] struct {
	Columns []*Column[T]
}

// Build resolves specs against the sheet headers. cleaner may be nil.
func Build[T Record](headers []string, cleaner Cleaner, specs ...ColumnSpec[T]) (*Table[T], error) {
	t := &Table[T]{}

	for _, spec := range specs {
		if spec.Write.Kind == WriteCustom && spec.Write.Porter == nil {
			return nil, fmt.Errorf("column %q: custom write without porter", spec.Name)
		}

		col := &Column[T]{ColumnSpec: spec, index: -1, headers: headers, cleaner: cleaner}

		switch {
		case spec.Source.derive != nil:
		case spec.Source.header != "":
			col.index = indexOf(headers, spec.Source.header)
			if col.index < 0 {
				return nil, fmt.Errorf("%w %q", ErrMissingHeader, spec.Source.header)
			}
			col.header = spec.Source.header
		default:
			col.index = spec.Source.position
			if col.index >= 0 && col.index < len(headers) {
				col.header = headers[col.index]
			}
		}

		t.Columns = append(t.Columns, col)
	}

	return t, nil
}

// Bind applies every column to a row.
func (t *Table[T]) Bind(row types.Row, backup *types.Row) []BoundCell[T] {
	cells := make([]BoundCell[T], len(t.Columns))
	for i, c := range t.Columns {
		cells[i] = c.Fetch(row, backup)
	}
	return cells
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}
