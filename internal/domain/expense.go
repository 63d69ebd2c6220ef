package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseType classifies an expense. The zero value is not a valid type.
type ExpenseType uint8

const (
	ExpenseMaintenance ExpenseType = iota + 1
	ExpenseCleaning
	ExpenseUtilities
	ExpenseTax
	ExpenseOther
)

// ExpenseTypes lists every valid expense type in display order.
var ExpenseTypes = []ExpenseType{ExpenseMaintenance, ExpenseCleaning, ExpenseUtilities, ExpenseTax, ExpenseOther}

func (t ExpenseType) String() string {
	switch t {
	case ExpenseMaintenance:
		return "maintenance"
	case ExpenseCleaning:
		return "cleaning"
	case ExpenseUtilities:
		return "utilities"
	case ExpenseTax:
		return "tax"
	case ExpenseOther:
		return "other"
	default:
		return fmt.Sprintf("ExpenseType(%d)", uint8(t))
	}
}

// IsValid reports whether t is one of the declared expense types.
func (t ExpenseType) IsValid() bool {
	return t >= ExpenseMaintenance && t <= ExpenseOther
}

// ParseExpenseType parses the lower-case name of an expense type.
func ParseExpenseType(s string) (ExpenseType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, t := range ExpenseTypes {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ExpenseType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ExpenseType) UnmarshalText(text []byte) error {
	parsed, err := ParseExpenseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Expense is money spent on behalf of an apartment by one payer.
type Expense struct {
	ID          string
	ApartmentID string
	PayerID     string
	Type        ExpenseType
	Description string
	Amount      decimal.Decimal
	Currency    string
	Date        time.Time
	Notes       string
	PhotoURLs   []string
	CreatedAt   time.Time
}

// Validate validates expense fields before it is stored.
func (e *Expense) Validate() error {
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !e.Type.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidType, e.Type)
	}

	if e.PayerID == "" {
		return fmt.Errorf("%w: payer is required", ErrInvalidArgument)
	}

	return ValidateCurrency(e.Currency)
}

// DateRange is an inclusive, optionally open-ended range of calendar dates.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	if r.From != nil && d.Before(*r.From) {
		return false
	}
	if r.To != nil && d.After(*r.To) {
		return false
	}
	return true
}
