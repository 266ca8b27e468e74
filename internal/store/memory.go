package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ginjaninja78/mess-import/internal/domain"
)

// memState holds every record by value. Lookups go through index maps so a
// dry run over a full workbook stays linear.
type memState struct {
	accounts   []domain.Account
	accountIdx map[uuid.UUID]int

	users     []domain.User
	userIdx   map[uuid.UUID]int
	usernames map[string]int

	members   []domain.Member
	memberIdx map[uuid.UUID]int

	links     []domain.AccountMember
	phones    []domain.Phone
	emails    []domain.Email
	addresses []domain.Address

	jobs   []domain.Job
	jobIdx map[uuid.UUID]int

	rules []domain.RecurRule
	tasks []domain.Task
}

func newMemState() *memState {
	return &memState{
		accountIdx: map[uuid.UUID]int{},
		userIdx:    map[uuid.UUID]int{},
		usernames:  map[string]int{},
		memberIdx:  map[uuid.UUID]int{},
		jobIdx:     map[uuid.UUID]int{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		accounts:   append([]domain.Account(nil), s.accounts...),
		accountIdx: cloneIndex(s.accountIdx),
		users:      append([]domain.User(nil), s.users...),
		userIdx:    cloneIndex(s.userIdx),
		usernames:  cloneIndex(s.usernames),
		members:    append([]domain.Member(nil), s.members...),
		memberIdx:  cloneIndex(s.memberIdx),
		links:      append([]domain.AccountMember(nil), s.links...),
		phones:     append([]domain.Phone(nil), s.phones...),
		emails:     append([]domain.Email(nil), s.emails...),
		addresses:  append([]domain.Address(nil), s.addresses...),
		jobs:       append([]domain.Job(nil), s.jobs...),
		jobIdx:     cloneIndex(s.jobIdx),
		rules:      append([]domain.RecurRule(nil), s.rules...),
		tasks:      append([]domain.Task(nil), s.tasks...),
	}
}

func cloneIndex[K comparable](m map[K]int) map[K]int {
	out := make(map[K]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MemoryStore keeps records in process memory. Transactions copy the state
// on begin and swap it in on success.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// Close is a no-op; the state stays readable through Snapshot.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	tx := &MemoryStore{state: s.state.clone()}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx.mu.Lock()
	defer tx.mu.Unlock()
	s.state = tx.state
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *MemoryStore) CreateAccount(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain.AssignIDs(account)
	if _, ok := s.state.accountIdx[account.ID]; ok {
		return fmt.Errorf("account %s already exists", account.ID)
	}
	s.state.accountIdx[account.ID] = len(s.state.accounts)
	s.state.accounts = append(s.state.accounts, *account)
	return nil
}

func (s *MemoryStore) SaveAccount(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.state.accountIdx[account.ID]
	if !ok {
		return fmt.Errorf("save account %s: %w", account.ID, ErrNotFound)
	}
	s.state.accounts[i] = *account
	return nil
}

func (s *MemoryStore) FindAccountByName(_ context.Context, name string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.state.accounts {
		if a.Name == name {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// =============================================================================
// USERS AND MEMBERS
// =============================================================================

func (s *MemoryStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.usernames[user.Username]; ok {
		return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
	}
	domain.AssignIDs(user)
	i := len(s.state.users)
	s.state.userIdx[user.ID] = i
	s.state.usernames[user.Username] = i
	s.state.users = append(s.state.users, *user)
	return nil
}

func (s *MemoryStore) SaveUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.state.userIdx[user.ID]
	if !ok {
		return fmt.Errorf("save user %s: %w", user.ID, ErrNotFound)
	}
	if old := s.state.users[i].Username; old != user.Username {
		if _, taken := s.state.usernames[user.Username]; taken {
			return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
		}
		delete(s.state.usernames, old)
		s.state.usernames[user.Username] = i
	}
	s.state.users[i] = *user
	return nil
}

func (s *MemoryStore) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.state.usernames[username]
	return ok, nil
}

func (s *MemoryStore) CreateMember(_ context.Context, member *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if member.User != nil {
		member.UserID = member.User.ID
	}
	if _, ok := s.state.userIdx[member.UserID]; !ok {
		return fmt.Errorf("member user %s: %w", member.UserID, ErrNotFound)
	}
	domain.AssignIDs(member)
	if member.Status == "" {
		member.Status = domain.StatusActive
	}
	if member.WorkStatus == "" {
		member.WorkStatus = "w"
	}

	stored := *member
	stored.User = nil
	s.state.memberIdx[member.ID] = len(s.state.members)
	s.state.members = append(s.state.members, stored)
	return nil
}

func (s *MemoryStore) SaveMember(_ context.Context, member *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.state.memberIdx[member.ID]
	if !ok {
		return fmt.Errorf("save member %s: %w", member.ID, ErrNotFound)
	}
	stored := *member
	stored.User = nil
	s.state.members[i] = stored
	return nil
}

func (s *MemoryStore) FindMemberByUsername(_ context.Context, username string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ui, ok := s.state.usernames[username]
	if !ok {
		return nil, ErrNotFound
	}
	user := s.state.users[ui]
	for _, m := range s.state.members {
		if m.UserID == user.ID {
			found := m
			found.User = &user
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListAccountMembers(_ context.Context, accountID uuid.UUID) ([]*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Member
	for _, l := range s.state.links {
		if l.AccountID != accountID {
			continue
		}
		mi, ok := s.state.memberIdx[l.MemberID]
		if !ok {
			continue
		}
		m := s.state.members[mi]
		if ui, ok := s.state.userIdx[m.UserID]; ok {
			user := s.state.users[ui]
			m.User = &user
		}
		out = append(out, &m)
	}
	return out, nil
}

func (s *MemoryStore) LinkAccountMember(_ context.Context, accountID, memberID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.accountIdx[accountID]; !ok {
		return fmt.Errorf("link account %s: %w", accountID, ErrNotFound)
	}
	if _, ok := s.state.memberIdx[memberID]; !ok {
		return fmt.Errorf("link member %s: %w", memberID, ErrNotFound)
	}
	link := domain.AccountMember{AccountID: accountID, MemberID: memberID}
	domain.AssignIDs(&link)
	s.state.links = append(s.state.links, link)
	return nil
}

// =============================================================================
// CONTACT MEDIA
// =============================================================================

func (s *MemoryStore) CreatePhone(_ context.Context, phone *domain.Phone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain.AssignIDs(phone)
	s.state.phones = append(s.state.phones, *phone)
	return nil
}

func (s *MemoryStore) CreateEmail(_ context.Context, email *domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain.AssignIDs(email)
	s.state.emails = append(s.state.emails, *email)
	return nil
}

func (s *MemoryStore) CreateAddress(_ context.Context, address *domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain.AssignIDs(address)
	s.state.addresses = append(s.state.addresses, *address)
	return nil
}

// =============================================================================
// JOBS AND TASKS
// =============================================================================

func (s *MemoryStore) CreateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createJobLocked(job)
}

func (s *MemoryStore) createJobLocked(job *domain.Job) error {
	if job.LegacyID != nil {
		for _, j := range s.state.jobs {
			if j.LegacyID != nil && *j.LegacyID == *job.LegacyID {
				return fmt.Errorf("job legacy id %d already exists", *job.LegacyID)
			}
		}
	}
	domain.AssignIDs(job)
	s.state.jobIdx[job.ID] = len(s.state.jobs)
	s.state.jobs = append(s.state.jobs, *job)
	return nil
}

func (s *MemoryStore) FindOrCreateJob(_ context.Context, name string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.state.jobs {
		if j.Name == name {
			found := j
			return &found, nil
		}
	}

	job := &domain.Job{Name: name, HoursMultiplier: one}
	if err := s.createJobLocked(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *MemoryStore) FindJobByLegacyID(_ context.Context, legacyID int64) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.state.jobs {
		if j.LegacyID != nil && *j.LegacyID == legacyID {
			found := j
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateRecurRule(_ context.Context, rule *domain.RecurRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain.AssignIDs(rule)
	s.state.rules = append(s.state.rules, *rule)
	return nil
}

func (s *MemoryStore) CreateTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain.AssignIDs(task)
	s.state.tasks = append(s.state.tasks, *task)
	return nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Snapshot is a point-in-time copy of everything the store holds.
type Snapshot struct {
	Accounts       []domain.Account
	Users          []domain.User
	Members        []domain.Member
	AccountMembers []domain.AccountMember
	Phones         []domain.Phone
	Emails         []domain.Email
	Addresses      []domain.Address
	Jobs           []domain.Job
	RecurRules     []domain.RecurRule
	Tasks          []domain.Task
}

// Snapshot copies the committed state, in creation order.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.clone()
	return Snapshot{
		Accounts:       st.accounts,
		Users:          st.users,
		Members:        st.members,
		AccountMembers: st.links,
		Phones:         st.phones,
		Emails:         st.emails,
		Addresses:      st.addresses,
		Jobs:           st.jobs,
		RecurRules:     st.rules,
		Tasks:          st.tasks,
	}
}

// User returns the stored user with the given username.
func (snap Snapshot) User(username string) (domain.User, bool) {
	for _, u := range snap.Users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return domain.User{}, false
}

// Account returns the stored account with the given name.
func (snap Snapshot) Account(name string) (domain.Account, bool) {
	for _, a := range snap.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return domain.Account{}, false
}

// Counts summarizes the snapshot by table name.
func (snap Snapshot) Counts() map[string]int {
	return map[string]int{
		domain.Account{}.TableName():       len(snap.Accounts),
		domain.User{}.TableName():          len(snap.Users),
		domain.Member{}.TableName():        len(snap.Members),
		domain.AccountMember{}.TableName(): len(snap.AccountMembers),
		domain.Phone{}.TableName():         len(snap.Phones),
		domain.Email{}.TableName():         len(snap.Emails),
		domain.Address{}.TableName():       len(snap.Addresses),
		domain.Job{}.TableName():           len(snap.Jobs),
		domain.RecurRule{}.TableName():     len(snap.RecurRules),
		domain.Task{}.TableName():          len(snap.Tasks),
	}
}
