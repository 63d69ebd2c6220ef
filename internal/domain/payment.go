package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a direct settlement between two participants.
type Payment struct {
	ID                string
	ApartmentID       string
	FromParticipantID string
	ToParticipantID   string
	Amount            decimal.Decimal
	Currency          string
	Date              time.Time
	Reason            string
	RelatedExpenseIDs []string
	CreatedAt         time.Time
}

// Validate validates payment request.
func (p *Payment) Validate() error {
	if p.FromParticipantID == p.ToParticipantID {
		return ErrSamePayer
	}

	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return ValidateCurrency(p.Currency)
}
