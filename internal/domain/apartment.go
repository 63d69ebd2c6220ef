package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ShareEpsilon is the tolerance applied when checking that shares sum to one.
var ShareEpsilon = decimal.New(1, -4)

// Apartment is the tenancy unit expenses, guests and calendar days are scoped to.
type Apartment struct {
	ID        string
	Name      string
	Address   string
	Currency  string
	Owners    []string
	Shares    SharePlan
	CreatedAt time.Time
}

// HasOwner reports whether userID is one of the apartment owners.
func (a *Apartment) HasOwner(userID string) bool {
	return slices.Contains(a.Owners, userID)
}

// Participant is a person with a share in an apartment's finances.
type Participant struct {
	ID          string
	DisplayName string
}

// SharePlan maps participant IDs to their fractional share of shared expenses.
type SharePlan map[string]decimal.Decimal

// Validate checks every share lies in [0, 1] and that they sum to one.
// An empty plan is valid and means equal split.
func (p SharePlan) Validate() error {
	if len(p) == 0 {
		return nil
	}

	total := decimal.Zero
	for id, share := range p {
		if share.IsNegative() || share.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: share for %s is %s", ErrInvalidShare, id, share)
		}
		total = total.Add(share)
	}

	if total.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(ShareEpsilon) {
		return fmt.Errorf("%w: shares sum to %s", ErrInvalidShare, total)
	}

	return nil
}

// ShareFor returns the share of participantID, falling back to 1/n.
func (p SharePlan) ShareFor(participantID string, n int) decimal.Decimal {
	if share, ok := p[participantID]; ok {
		return share
	}
	if n <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(n)))
}
