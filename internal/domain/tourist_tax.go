package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxBillableNights caps the nights tourist tax is charged for.
	MaxBillableNights = 4
)

// DefaultTouristTaxRate is charged per guest per billable night.
var DefaultTouristTaxRate = decimal.NewFromInt(3)

// CalculateTouristTax returns guestCount * min(nights, 4) * rate, or zero when nights <= 0.
func CalculateTouristTax(guestCount, nights int, rate decimal.Decimal) decimal.Decimal {
	if nights <= 0 {
		return decimal.Zero
	}

	billable := min(nights, MaxBillableNights)

	return decimal.NewFromInt(int64(guestCount)).
		Mul(decimal.NewFromInt(int64(billable))).
		Mul(rate)
}

// NightsBetween returns the number of started days between check-in and check-out.
func NightsBetween(checkIn, checkOut time.Time) int {
	days := checkOut.Sub(checkIn).Hours() / 24
	return int(math.Ceil(days))
}
