package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/mess-import/internal/domain"
)

var (
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("record not found")

	// ErrUsernameTaken is returned by CreateUser when the username exists.
	ErrUsernameTaken = errors.New("username already taken")
)

// one is the default hours multiplier of jobs created by name.
var one = decimal.NewFromInt(1)

// Store is the persistent record store the importers write to.
type Store interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	SaveAccount(ctx context.Context, account *domain.Account) error
	FindAccountByName(ctx context.Context, name string) (*domain.Account, error)

	CreateUser(ctx context.Context, user *domain.User) error
	SaveUser(ctx context.Context, user *domain.User) error
	UsernameExists(ctx context.Context, username string) (bool, error)

	CreateMember(ctx context.Context, member *domain.Member) error
	SaveMember(ctx context.Context, member *domain.Member) error
	FindMemberByUsername(ctx context.Context, username string) (*domain.Member, error)
	ListAccountMembers(ctx context.Context, accountID uuid.UUID) ([]*domain.Member, error)
	LinkAccountMember(ctx context.Context, accountID, memberID uuid.UUID) error

	CreatePhone(ctx context.Context, phone *domain.Phone) error
	CreateEmail(ctx context.Context, email *domain.Email) error
	CreateAddress(ctx context.Context, address *domain.Address) error

	CreateJob(ctx context.Context, job *domain.Job) error
	FindOrCreateJob(ctx context.Context, name string) (*domain.Job, error)
	FindJobByLegacyID(ctx context.Context, legacyID int64) (*domain.Job, error)

	CreateRecurRule(ctx context.Context, rule *domain.RecurRule) error
	CreateTask(ctx context.Context, task *domain.Task) error

	// Transaction runs fn against a store bound to one atomic scope. Any
	// error returned by fn rolls back everything written through it.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// Close releases the connection. Call it on the store returned by Open,
	// not on a transaction scope.
	Close() error
}
