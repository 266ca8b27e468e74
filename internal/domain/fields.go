package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UserSegment is the reserved first path segment that addresses a member's
// user record instead of the member itself.
const UserSegment = "user"

// SetField assigns an account field by column name.
func (a *Account) SetField(name string, value any) error {
	var err error
	switch name {
	case "name":
		a.Name, err = asString(name, value)
	case "balance":
		a.Balance, err = asDecimal(name, value)
	case "hours_balance":
		a.HoursBalance, err = asDecimal(name, value)
	case "deposit":
		a.Deposit, err = asDecimal(name, value)
	case "note":
		var s string
		if s, err = asString(name, value); err == nil {
			a.AppendNote(s)
		}
	case "ebt_only":
		a.EBTOnly, err = asBool(name, value)
	default:
		return fmt.Errorf("account has no field %q", name)
	}
	return err
}

// AppendNote adds a line to the account note. Blank text is ignored.
func (a *Account) AppendNote(text string) {
	if text == "" {
		return
	}
	if a.Note != "" {
		a.Note += "\n"
	}
	a.Note += text
}

// SetField assigns a member field by column name.
func (m *Member) SetField(name string, value any) error {
	var err error
	switch name {
	case "status":
		m.Status, err = asString(name, value)
	case "work_status":
		m.WorkStatus, err = asString(name, value)
	case "has_key":
		m.HasKey, err = asBool(name, value)
	default:
		return fmt.Errorf("member has no field %q", name)
	}
	return err
}

// SubRecord returns the user record for the reserved user segment.
func (m *Member) SubRecord(segment string) (*User, bool) {
	if segment != UserSegment || m.User == nil {
		return nil, false
	}
	return m.User, true
}

// SetField assigns a user field by column name.
func (u *User) SetField(name string, value any) error {
	var err error
	switch name {
	case "username":
		u.Username, err = asString(name, value)
	case "password":
		u.Password, err = asString(name, value)
	case "first_name":
		u.FirstName, err = asString(name, value)
	case "last_name":
		u.LastName, err = asString(name, value)
	case "date_joined":
		u.DateJoined, err = asTime(name, value)
	default:
		return fmt.Errorf("user has no field %q", name)
	}
	return err
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s: want string, got %T", field, v)
	}
	return s, nil
}

func asBool(field string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %s: want bool, got %T", field, v)
	}
	return b, nil
}

func asDecimal(field string, v any) (decimal.Decimal, error) {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return decimal.Zero, fmt.Errorf("field %s: want decimal, got %T", field, v)
	}
	return d, nil
}

func asTime(field string, v any) (time.Time, error) {
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("field %s: want time, got %T", field, v)
	}
	return t, nil
}
