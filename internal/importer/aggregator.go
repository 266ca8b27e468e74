package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ginjaninja78/mess-import/internal/domain"
	"github.com/ginjaninja78/mess-import/internal/mapping"
	"github.com/ginjaninja78/mess-import/internal/parsers"
	"github.com/ginjaninja78/mess-import/internal/store"
	"github.com/ginjaninja78/mess-import/internal/types"
)

// Section codes of the legacy membership sheet.
const (
	SectionPrimary      = "1.0"
	SectionLeave        = "2.0"
	SectionMissing      = "3.0"
	SectionSupplemental = "4.0"
	SectionEBT          = "5.0"
	SectionDeparted     = "6.0"
)

// statusSections maps status-only sections to the member status they set.
// SectionEBT flags the account instead.
var statusSections = map[string]string{
	SectionLeave:    domain.StatusLeave,
	SectionMissing:  domain.StatusMissing,
	SectionEBT:      "",
	SectionDeparted: domain.StatusDeparted,
}

// IsStatusSection reports whether rows of the section only update flags.
func IsStatusSection(section string) bool {
	_, ok := statusSections[section]
	return ok
}

// State is the collection state of an aggregator.
type State int

const (
	CollectingPrimary State = iota
	CollectingSupplemental
)

func (s State) String() string {
	if s == CollectingSupplemental {
		return "collecting-supplemental"
	}
	return "collecting-primary"
}

// MemberGroup is the bound cells of one member. The first cell is the
// username slug.
type MemberGroup struct {
	Proxy bool
	Row   int

	// Name is the member's name as typed, used to match status rows.
	Name  string
	Cells []mapping.BoundCell[*memberTarget]
}

// StatusUpdate is a status-only row recorded against an account.
type StatusUpdate struct {
	Row     int
	Section string

	// Member is the display name from the primary member column. Blank
	// applies the update to every member of the account.
	Member string
}

// AccountAggregator accumulates the rows of one account until the batch is
// committed.
type AccountAggregator struct {
	Key   string
	State State

	primary types.Row
	tables  *Tables

	AccountCells []mapping.BoundCell[*domain.Account]
	Groups       []MemberGroup
	Updates      []StatusUpdate
}

func newAggregator(key string, row types.Row, tables *Tables, log Logger) *AccountAggregator {
	a := &AccountAggregator{
		Key:     key,
		State:   CollectingPrimary,
		primary: row,
		tables:  tables,
	}
	a.AccountCells = bind(tables.Account, row, nil, log)
	a.addGroups(row, nil, log)
	return a
}

// AddSupplemental amends the account with a supplemental row. The first
// supplemental row replaces the members read from the primary row.
func (a *AccountAggregator) AddSupplemental(row types.Row, log Logger) {
	if a.State == CollectingPrimary {
		a.Groups = nil
		a.State = CollectingSupplemental
	}
	a.addGroups(row, &a.primary, log)
}

// AddStatus records a status-only row.
func (a *AccountAggregator) AddStatus(update StatusUpdate) {
	a.Updates = append(a.Updates, update)
}

func (a *AccountAggregator) addGroups(row types.Row, backup *types.Row, log Logger) {
	a.Groups = append(a.Groups, MemberGroup{
		Row:   row.Number,
		Name:  typedName(a.tables.Member, row, backup),
		Cells: bind(a.tables.Member, row, backup, log),
	})

	if hasProxy, _ := a.tables.HasProxy.Fetch(row, nil).Value.(bool); hasProxy {
		a.Groups = append(a.Groups, MemberGroup{
			Proxy: true,
			Row:   row.Number,
			Name:  typedName(a.tables.Proxy, row, backup),
			Cells: bind(a.tables.Proxy, row, backup, log),
		})
	}
}

// typedName reads the raw text of a table's username column, falling back
// to the backup row like the column itself.
func typedName(table *mapping.Table[*memberTarget], row types.Row, backup *types.Row) string {
	idx := table.Columns[0].Index()
	raw := row.Cell(idx)
	if raw.IsBlank() && backup != nil {
		raw = backup.Cell(idx)
	}
	return raw.String()
}

// sameName compares names case-insensitively with whitespace runs collapsed.
func sameName(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}

// bind is the one place degraded values are reported.
func bind[T mapping.Record](table *mapping.Table[T], row types.Row, backup *types.Row, log Logger) []mapping.BoundCell[T] {
	cells := table.Bind(row, backup)
	for _, c := range cells {
		if c.Degraded != "" {
			log.Warn("Degraded value",
				"row", row.Number,
				"column", c.Column.Label(),
				"reason", c.Degraded)
		}
	}
	return cells
}

// =============================================================================
// FINALIZATION
// =============================================================================

// Migrated is what an aggregator wrote.
type Migrated struct {
	Account *domain.Account
	Members []*domain.Member
}

// Migrate writes the account and its members through tx.
func (a *AccountAggregator) Migrate(ctx context.Context, tx store.Store) (*Migrated, error) {
	account := &domain.Account{Name: a.Key}
	if err := tx.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("create account %q: %w", a.Key, err)
	}
	for _, cell := range a.AccountCells {
		if err := cell.Migrate(ctx, account); err != nil {
			return nil, fmt.Errorf("account %q, column %s: %w", a.Key, cell.Column.Label(), err)
		}
	}
	if err := tx.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save account %q: %w", a.Key, err)
	}

	targets := make([]*memberTarget, 0, len(a.Groups))
	for _, group := range a.Groups {
		t, err := a.migrateGroup(ctx, tx, account, group)
		if err != nil {
			return nil, fmt.Errorf("account %q, row %d: %w", a.Key, group.Row, err)
		}
		targets = append(targets, t)
	}

	for _, u := range a.Updates {
		applyStatus(account, targets, u)
	}

	out := &Migrated{Account: account}
	for _, t := range targets {
		if err := tx.SaveMember(ctx, t.Member); err != nil {
			return nil, fmt.Errorf("save member %s: %w", t.User.Username, err)
		}
		if err := tx.SaveUser(ctx, t.User); err != nil {
			return nil, fmt.Errorf("save user %s: %w", t.User.Username, err)
		}
		out.Members = append(out.Members, t.Member)
	}

	// Porters may have appended to the note.
	if err := tx.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save account %q: %w", a.Key, err)
	}
	return out, nil
}

func (a *AccountAggregator) migrateGroup(ctx context.Context, tx store.Store, account *domain.Account, group MemberGroup) (*memberTarget, error) {
	if len(group.Cells) == 0 {
		return nil, fmt.Errorf("member group without cells")
	}
	slug, _ := group.Cells[0].Value.(string)
	if slug == "" {
		slug = parsers.BlankUsername
	}

	username, err := parsers.UniqueUsername(ctx, slug, tx.UsernameExists)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Username: username}
	if err := tx.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}

	member := &domain.Member{
		User:       user,
		Status:     domain.StatusActive,
		WorkStatus: parsers.WorkShift,
	}
	if err := tx.CreateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("create member %s: %w", username, err)
	}
	if err := tx.LinkAccountMember(ctx, account.ID, member.ID); err != nil {
		return nil, fmt.Errorf("link member %s: %w", username, err)
	}

	target := &memberTarget{Member: member, account: account, tx: tx, name: group.Name}
	for _, cell := range group.Cells[1:] {
		if err := cell.Migrate(ctx, target); err != nil {
			return nil, fmt.Errorf("member %s, column %s: %w", username, cell.Column.Label(), err)
		}
	}
	return target, nil
}

// applyStatus sets the status of the named member, or of every member when
// the name is blank or matches nobody. Names match the sheet text, so a
// one-word name never has to equal the generated "Lastname".
func applyStatus(account *domain.Account, targets []*memberTarget, u StatusUpdate) {
	status, ok := statusSections[u.Section]
	if !ok {
		return
	}
	if u.Section == SectionEBT {
		account.EBTOnly = true
		return
	}

	var matched []*memberTarget
	if name := strings.TrimSpace(u.Member); name != "" {
		for _, t := range targets {
			if sameName(t.name, name) {
				matched = append(matched, t)
			}
		}
	}
	if len(matched) == 0 {
		matched = targets
	}
	for _, t := range matched {
		t.Status = status
	}
}
