// =============================================================================
// Membership Importer - Driver
// =============================================================================
//
// This module drives a membership import for one sheet. It runs in two
// phases so that nothing is written unless the whole sheet reads cleanly.
//
// COLLECT:
//   1. Resolve the column tables for the format version (a missing header
//      aborts here, before any row is read)
//   2. Check each row's shape; rejected rows are logged and dropped
//   3. Route each row by its section code:
//        1.0          creates the account aggregator (duplicate key aborts)
//        4.0          adds members to a known account
//        2.0 3.0 5.0 6.0  records a status update on a known account
//        anything else    is skipped
//   4. Every row emits one diagnostic line
//
// COMMIT:
//   Every aggregator is migrated inside one store transaction. Any error
//   rolls back the whole batch.
//
// =============================================================================

package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ginjaninja78/mess-import/internal/mapping"
	"github.com/ginjaninja78/mess-import/internal/parsers"
	"github.com/ginjaninja78/mess-import/internal/store"
	"github.com/ginjaninja78/mess-import/internal/types"
	"github.com/ginjaninja78/mess-import/internal/validation"
)

// ErrDuplicateAccount is returned by Collect when two primary rows share an
// account key.
var ErrDuplicateAccount = errors.New("duplicate primary account")

// Logger is the logging surface the importer needs. *logger.Logger
// implements it.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// =============================================================================
// OPTIONS AND RESULTS
// =============================================================================

// Options configures one import run.
type Options struct {
	TableOptions

	// MaxLines stops reading after this sheet row number. Zero reads all.
	MaxLines int
}

// Row outcomes recorded in diagnostics.
const (
	OutcomeLoaded   = "loaded row"
	OutcomeStatus   = "status row"
	OutcomeSkipped  = "SKIPPED row"
	OutcomeRejected = "REJECTED row"
)

// Diagnostic is the per-row log line of a run.
type Diagnostic struct {
	Row     int
	Section string
	Account string
	Result  string
}

// Summary describes a committed batch.
type Summary struct {
	Sheet          string
	RowsRead       int
	Accounts       int
	Members        int
	RejectedRows   int
	SkippedRows    int
	ProcessingTime time.Duration
}

// =============================================================================
// BATCH
// =============================================================================

// Batch is the aggregation context of one sheet. It is built by Collect and
// consumed by Commit.
type Batch struct {
	Sheet string

	// Accounts are in the order their primary rows appeared.
	Accounts []*AccountAggregator

	Diagnostics []Diagnostic
	Rejections  []*validation.RowRejection

	index    map[string]*AccountAggregator
	rowsRead int
	log      Logger
}

// Account returns the aggregator for a key.
func (b *Batch) Account(key string) (*AccountAggregator, bool) {
	a, ok := b.index[key]
	return a, ok
}

func (b *Batch) note(row int, section, account, result string) {
	b.Diagnostics = append(b.Diagnostics, Diagnostic{Row: row, Section: section, Account: account, Result: result})
	b.log.Info(result, "row", row, "section", section, "account", account)
}

func (b *Batch) count(result string) int {
	n := 0
	for _, d := range b.Diagnostics {
		if d.Result == result {
			n++
		}
	}
	return n
}

// Collect reads a sheet into a Batch without writing anything.
//
// RETURNS:
//   - The batch, ready for Commit.
//   - An error wrapping mapping.ErrMissingHeader or ErrDuplicateAccount when
//     the sheet cannot be imported at all.
func Collect(sheet *types.Sheet, opts Options, log Logger) (*Batch, error) {
	tables, err := BuildTables(sheet.Headers, opts.TableOptions)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
	}

	validator, err := validation.New(sheet.Headers,
		validation.Rule{Position: 0, Kinds: []types.CellKind{types.KindText}, Required: true},
		validation.Rule{Column: ColSection, Required: true},
	)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
	}

	b := &Batch{
		Sheet: sheet.Name,
		index: map[string]*AccountAggregator{},
		log:   log,
	}

	for _, row := range sheet.Rows {
		if opts.MaxLines > 0 && row.Number > opts.MaxLines {
			log.Warn("Stopping at line limit", "max_lines", opts.MaxLines)
			break
		}
		b.rowsRead++
		if row.IsEmpty() {
			log.Debug("Skipping empty row", "row", row.Number)
			continue
		}

		if err := validator.Check(row); err != nil {
			var rej *validation.RowRejection
			if errors.As(err, &rej) {
				b.Rejections = append(b.Rejections, rej)
			}
			log.Warn("Row rejected", "row", row.Number, "error", err)
			b.note(row.Number, row.Cell(tables.Section.Index()).String(), row.Cell(0).String(), OutcomeRejected)
			continue
		}

		if err := b.route(row, tables); err != nil {
			return nil, err
		}
	}

	log.Info("Done reading input sheet",
		"sheet", sheet.Name,
		"accounts", len(b.Accounts),
		"rejected", len(b.Rejections))
	return b, nil
}

func (b *Batch) route(row types.Row, tables *Tables) error {
	section, _ := tables.Section.Fetch(row, nil).Value.(string)
	key, _ := tables.Key.Fetch(row, nil).Value.(string)

	agg, known := b.index[key]

	switch {
	case section == SectionPrimary:
		if known {
			return fmt.Errorf("%w %q at row %d", ErrDuplicateAccount, key, row.Number)
		}
		agg = newAggregator(key, row, tables, b.log)
		b.index[key] = agg
		b.Accounts = append(b.Accounts, agg)
		b.note(row.Number, section, key, OutcomeLoaded)

	case section == SectionSupplemental && known:
		agg.AddSupplemental(row, b.log)
		b.note(row.Number, section, key, OutcomeLoaded)

	case IsStatusSection(section) && known:
		// The member table's first column always reads the primary member.
		member := row.Cell(tables.Member.Columns[0].Index()).String()
		agg.AddStatus(StatusUpdate{Row: row.Number, Section: section, Member: member})
		b.note(row.Number, section, key, OutcomeStatus)

	default:
		b.note(row.Number, section, key, OutcomeSkipped)
	}
	return nil
}

// Commit migrates every aggregator inside one transaction.
func (b *Batch) Commit(ctx context.Context, s store.Store) (*Summary, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Sheet:        b.Sheet,
		RowsRead:     b.rowsRead,
		RejectedRows: len(b.Rejections),
		SkippedRows:  b.count(OutcomeSkipped),
	}

	err := s.Transaction(ctx, func(tx store.Store) error {
		for _, agg := range b.Accounts {
			out, err := agg.Migrate(ctx, tx)
			if err != nil {
				return err
			}
			summary.Accounts++
			summary.Members += len(out.Members)
			b.log.Debug("Saved account", "account", agg.Key, "members", len(out.Members))
		}
		return nil
	})
	if err != nil {
		b.log.Error("Batch rolled back", "sheet", b.Sheet, "error", err)
		return nil, fmt.Errorf("commit sheet %q: %w", b.Sheet, err)
	}

	summary.ProcessingTime = time.Since(start)
	b.log.Info("Batch committed",
		"sheet", b.Sheet,
		"accounts", summary.Accounts,
		"members", summary.Members)
	return summary, nil
}

// Run imports the first sheet of a workbook.
func Run(ctx context.Context, wb *types.Workbook, s store.Store, opts Options, log Logger) (*Summary, error) {
	sheet := wb.First()
	if sheet == nil {
		return nil, fmt.Errorf("workbook %s has no sheets", wb.SourceFile)
	}

	batch, err := Collect(sheet, opts, log)
	if err != nil {
		return nil, err
	}
	return batch.Commit(ctx, s)
}

// DefaultOptions returns version 2 options with the stock rotation tables.
func DefaultOptions() Options {
	return Options{
		TableOptions: TableOptions{
			FormatVersion: 2,
			Rotation:      parsers.DefaultRotationConfig(),
		},
	}
}

var _ mapping.Record = (*memberTarget)(nil)
var _ mapping.Nested = (*memberTarget)(nil)
