package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ginjaninja78/mess-import/internal/config"
	"github.com/ginjaninja78/mess-import/internal/domain"
	"github.com/ginjaninja78/mess-import/internal/logger"
)

type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the configured database and migrates the schema.
func Open(cfg config.DatabaseConfig, baseLog *logger.Logger) (Store, error) {
	log := baseLog.With("service", "GormStore", "driver", cfg.Driver)

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	log.Info("Connecting to database...")
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewGormStore(db, baseLog)
}

// NewGormStore wraps an open connection and migrates the schema.
func NewGormStore(db *gorm.DB, baseLog *logger.Logger) (Store, error) {
	log := baseLog.With("service", "GormStore")

	log.Debug("Auto migrating tables...")
	if err := db.AutoMigrate(domain.All()...); err != nil {
		log.Error("Auto migration failed", "error", err)
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}

	return &gormStore{db: db, log: log}, nil
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	s.log.Debug("Closing database connection")
	return sqlDB.Close()
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, log: s.log})
	})
}

func (s *gormStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	return s.db.WithContext(ctx).Create(account).Error
}

func (s *gormStore) SaveAccount(ctx context.Context, account *domain.Account) error {
	return s.db.WithContext(ctx).Save(account).Error
}

func (s *gormStore) FindAccountByName(ctx context.Context, name string) (*domain.Account, error) {
	var account domain.Account
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *gormStore) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
	}
	return err
}

func (s *gormStore) SaveUser(ctx context.Context, user *domain.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *gormStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormStore) CreateMember(ctx context.Context, member *domain.Member) error {
	if member.User != nil {
		member.UserID = member.User.ID
	}
	return s.db.WithContext(ctx).Create(member).Error
}

func (s *gormStore) SaveMember(ctx context.Context, member *domain.Member) error {
	return s.db.WithContext(ctx).Save(member).Error
}

func (s *gormStore) FindMemberByUsername(ctx context.Context, username string) (*domain.Member, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}

	var member domain.Member
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&member).Error; err != nil {
		return nil, translate(err)
	}
	member.User = &user
	return &member, nil
}

func (s *gormStore) ListAccountMembers(ctx context.Context, accountID uuid.UUID) ([]*domain.Member, error) {
	var members []*domain.Member
	linked := s.db.Model(&domain.AccountMember{}).Select("member_id").Where("account_id = ?", accountID)
	if err := s.db.WithContext(ctx).
		Where("id IN (?)", linked).
		Order("created_at").
		Find(&members).Error; err != nil {
		return nil, err
	}

	for _, m := range members {
		var user domain.User
		if err := s.db.WithContext(ctx).First(&user, "id = ?", m.UserID).Error; err != nil {
			return nil, translate(err)
		}
		m.User = &user
	}
	return members, nil
}

func (s *gormStore) LinkAccountMember(ctx context.Context, accountID, memberID uuid.UUID) error {
	return s.db.WithContext(ctx).Create(&domain.AccountMember{AccountID: accountID, MemberID: memberID}).Error
}

func (s *gormStore) CreatePhone(ctx context.Context, phone *domain.Phone) error {
	return s.db.WithContext(ctx).Create(phone).Error
}

func (s *gormStore) CreateEmail(ctx context.Context, email *domain.Email) error {
	return s.db.WithContext(ctx).Create(email).Error
}

func (s *gormStore) CreateAddress(ctx context.Context, address *domain.Address) error {
	return s.db.WithContext(ctx).Create(address).Error
}

func (s *gormStore) CreateJob(ctx context.Context, job *domain.Job) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *gormStore) FindOrCreateJob(ctx context.Context, name string) (*domain.Job, error) {
	var job domain.Job
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&job).Error
	if err == nil {
		return &job, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	job = domain.Job{Name: name, HoursMultiplier: one}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *gormStore) FindJobByLegacyID(ctx context.Context, legacyID int64) (*domain.Job, error) {
	var job domain.Job
	if err := s.db.WithContext(ctx).Where("legacy_id = ?", legacyID).First(&job).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

func (s *gormStore) CreateRecurRule(ctx context.Context, rule *domain.RecurRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

func (s *gormStore) CreateTask(ctx context.Context, task *domain.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
