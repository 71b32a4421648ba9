package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Income     OperationType = "ENTRATA"
	Expense    OperationType = "USCITA"
	Withdrawal OperationType = "PRELIEVO"
)

type (
	// OperationType is the direction of a transaction. The string values are the
	// ones used on the wire by the ledger backend.
	OperationType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// AccountRef points at an account ("total") by ID. Name is informational.
	AccountRef struct {
		ID   int64  `json:"id" yaml:"id"`
		Name string `json:"name,omitempty" yaml:"name,omitempty"`
	}

	Transaction struct {
		ID              int64         `json:"id" yaml:"id"`
		Type            OperationType `json:"type" yaml:"type"`
		Amount          Money         `json:"amount" yaml:"amount"`
		Description     string        `json:"description,omitempty" yaml:"description,omitempty"` // Category label, empty when absent
		AdditionalNotes string        `json:"additionalNotes,omitempty" yaml:"additional_notes,omitempty"`
		Date            Date          `json:"date" yaml:"date"`
		Account         AccountRef    `json:"account" yaml:"account"`                                  // Destination / holding account
		SourceAccount   *AccountRef   `json:"sourceAccount,omitempty" yaml:"source_account,omitempty"` // Withdrawals only
	}

	// Account is a named running balance bucket.
	Account struct {
		ID        int64  `json:"id" yaml:"id"`
		Name      string `json:"name" yaml:"name"`
		Balance   Money  `json:"balance" yaml:"balance"` // May be negative
		CanDelete bool   `json:"canDelete" yaml:"can_delete"`
	}

	Description struct {
		ID          int64         `json:"id" yaml:"id"`
		Type        OperationType `json:"type" yaml:"type"`
		Text        string        `json:"description" yaml:"description"`
		Occurrences int           `json:"occurrences,omitempty" yaml:"occurrences,omitempty"`
	}

	User struct {
		PersonID int64  `json:"person_id"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Role     string `json:"role"`
		Provider string `json:"provider,omitempty"`
	}
)

var (
	ErrInvalidType             = errors.New("invalid operation type")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidDate             = errors.New("invalid date")
	ErrMissingAccount          = errors.New("missing account")
	ErrMissingSourceAccount    = errors.New("withdrawal requires a source account")
	ErrUnexpectedSourceAccount = errors.New("only withdrawals have a source account")
	ErrSameAccount             = errors.New("source and destination account must differ")
	ErrEmptyDescription        = errors.New("empty description")
	ErrDescriptionTooLong      = errors.New("description too long (max 200 characters)")
)

// ParseOperationType accepts the wire values as well as the English names.
func ParseOperationType(s string) (OperationType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Income), "INCOME":
		return Income, nil
	case string(Expense), "EXPENSE":
		return Expense, nil
	case string(Withdrawal), "WITHDRAWAL":
		return Withdrawal, nil
	}
	return "", ErrInvalidType
}

func (t OperationType) IsValid() bool {
	switch t {
	case Income, Expense, Withdrawal:
		return true
	}
	return false
}

// Label returns the English name used in reports and logs.
func (t OperationType) Label() string {
	switch t {
	case Income:
		return "income"
	case Expense:
		return "expense"
	case Withdrawal:
		return "withdrawal"
	}
	return string(t)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MarshalText renders the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON overrides the promoted time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalText accepts YYYY-MM-DD.
func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse("2006-01-02", string(b))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, b)
	}
	d.Time = t
	return nil
}

// UnmarshalJSON overrides the promoted time.Time decoding.
func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	return d.UnmarshalText([]byte(s))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a transaction before it is written to the ledger.
// Future dates are allowed.
func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Account.ID <= 0 {
		return ErrMissingAccount
	}
	switch t.Type {
	case Withdrawal:
		if t.SourceAccount == nil || t.SourceAccount.ID <= 0 {
			return ErrMissingSourceAccount
		}
		if t.SourceAccount.ID == t.Account.ID {
			return ErrSameAccount
		}
	default:
		if t.SourceAccount != nil {
			return ErrUnexpectedSourceAccount
		}
		if len(t.Description) > 200 {
			return ErrDescriptionTooLong
		}
	}
	return nil
}

func (d Description) Validate() error {
	if d.Type != Income && d.Type != Expense {
		return ErrInvalidType
	}
	if strings.TrimSpace(d.Text) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// IsValidation reports whether err is one of the validation sentinels above.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidType, ErrInvalidAmount, ErrInvalidDate, ErrMissingAccount,
		ErrMissingSourceAccount, ErrUnexpectedSourceAccount, ErrSameAccount, ErrEmptyDescription, ErrDescriptionTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
