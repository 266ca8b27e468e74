package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Member status codes.
const (
	StatusActive   = "a"
	StatusLeave    = "L"
	StatusMissing  = "m"
	StatusDeparted = "d"
)

// Recurrence units.
const (
	RecurDay   = "day"
	RecurWeek  = "week"
	RecurMonth = "month"
)

type Account struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"not null;index;column:name" json:"name"`
	Balance      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;column:balance" json:"balance"`
	HoursBalance decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0;column:hours_balance" json:"hours_balance"`
	Deposit      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;column:deposit" json:"deposit"`
	Note         string          `gorm:"type:text;column:note" json:"note"`
	EBTOnly      bool            `gorm:"not null;default:false;column:ebt_only" json:"ebt_only"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// User is the identity and credential record of a member.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username   string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	Password   string    `gorm:"not null;column:password" json:"-"`
	FirstName  string    `gorm:"not null;column:first_name" json:"first_name"`
	LastName   string    `gorm:"not null;column:last_name" json:"last_name"`
	DateJoined time.Time `gorm:"column:date_joined" json:"date_joined"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

type Member struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`
	User       *User     `gorm:"-" json:"user,omitempty"`
	Status     string    `gorm:"size:1;not null;default:'a';column:status" json:"status"`
	WorkStatus string    `gorm:"size:1;not null;default:'w';column:work_status" json:"work_status"`
	HasKey     bool      `gorm:"not null;default:false;column:has_key" json:"has_key"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Member) TableName() string {
	return "member"
}

// DisplayName is "First Last" from the linked user, if loaded.
func (m *Member) DisplayName() string {
	if m.User == nil {
		return ""
	}
	return m.User.FirstName + " " + m.User.LastName
}

type AccountMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index;column:account_id" json:"account_id"`
	MemberID  uuid.UUID `gorm:"type:uuid;not null;index;column:member_id" json:"member_id"`
}

func (AccountMember) TableName() string {
	return "account_member"
}

type Phone struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID uuid.UUID `gorm:"type:uuid;not null;index;column:member_id" json:"member_id"`
	Number   string    `gorm:"not null;column:number" json:"number"`
}

func (Phone) TableName() string {
	return "phone"
}

type Email struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID uuid.UUID `gorm:"type:uuid;not null;index;column:member_id" json:"member_id"`
	Email    string    `gorm:"not null;column:email" json:"email"`
}

func (Email) TableName() string {
	return "email"
}

type Address struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID   uuid.UUID `gorm:"type:uuid;not null;index;column:member_id" json:"member_id"`
	Address1   string    `gorm:"not null;column:address1" json:"address1"`
	City       string    `gorm:"column:city" json:"city"`
	State      string    `gorm:"column:state" json:"state"`
	PostalCode string    `gorm:"column:postal_code" json:"postal_code"`
}

func (Address) TableName() string {
	return "address"
}

type Job struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LegacyID        *int64          `gorm:"uniqueIndex;column:legacy_id" json:"legacy_id,omitempty"`
	Name            string          `gorm:"not null;index;column:name" json:"name"`
	Description     string          `gorm:"type:text;column:description" json:"description"`
	Type            int             `gorm:"column:type" json:"type"`
	FreezeDays      int             `gorm:"column:freeze_days" json:"freeze_days"`
	HoursMultiplier decimal.Decimal `gorm:"type:decimal(6,2);not null;default:1;column:hours_multiplier" json:"hours_multiplier"`
}

func (Job) TableName() string {
	return "job"
}

type RecurRule struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Unit     string    `gorm:"not null;column:unit" json:"unit"`
	Interval int       `gorm:"not null;column:interval" json:"interval"`
}

func (RecurRule) TableName() string {
	return "recur_rule"
}

type Task struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	JobID       *uuid.UUID      `gorm:"type:uuid;index;column:job_id" json:"job_id,omitempty"`
	MemberID    *uuid.UUID      `gorm:"type:uuid;index;column:member_id" json:"member_id,omitempty"`
	AccountID   *uuid.UUID      `gorm:"type:uuid;index;column:account_id" json:"account_id,omitempty"`
	Time        time.Time       `gorm:"not null;column:time" json:"time"`
	Hours       decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0;column:hours" json:"hours"`
	RecurRuleID *uuid.UUID      `gorm:"type:uuid;column:recur_rule_id" json:"recur_rule_id,omitempty"`
	Deadline    *time.Time      `gorm:"column:deadline" json:"deadline,omitempty"`
	Excused     bool            `gorm:"not null;default:false;column:excused" json:"excused"`
	Makeup      bool            `gorm:"not null;default:false;column:makeup" json:"makeup"`
	Banked      bool            `gorm:"not null;default:false;column:banked" json:"banked"`
	HoursWorked decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0;column:hours_worked" json:"hours_worked"`
}

func (Task) TableName() string {
	return "task"
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Account{}, &User{}, &Member{}, &AccountMember{},
		&Phone{}, &Email{}, &Address{},
		&Job{}, &RecurRule{}, &Task{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func (m *Member) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

func (am *AccountMember) BeforeCreate(*gorm.DB) error {
	ensureID(&am.ID)
	return nil
}

func (p *Phone) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (e *Email) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	ensureID(&j.ID)
	return nil
}

func (r *RecurRule) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// AssignIDs fills empty IDs without a database. The memory store uses it.
func AssignIDs(records ...interface{}) {
	for _, r := range records {
		if c, ok := r.(interface{ BeforeCreate(*gorm.DB) error }); ok {
			_ = c.BeforeCreate(nil)
		}
	}
}
