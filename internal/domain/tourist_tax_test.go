package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCalculateTouristTax(t *testing.T) {
	tests := []struct {
		name   string
		guests int
		nights int
		rate   decimal.Decimal
		want   decimal.Decimal
	}{
		{"capped at four nights", 2, 10, DefaultTouristTaxRate, decimal.NewFromInt(24)},
		{"below cap", 1, 3, DefaultTouristTaxRate, decimal.NewFromInt(9)},
		{"exactly cap", 3, 4, DefaultTouristTaxRate, decimal.NewFromInt(36)},
		{"zero nights", 4, 0, DefaultTouristTaxRate, decimal.Zero},
		{"negative nights", 4, -1, DefaultTouristTaxRate, decimal.Zero},
		{"zero guests", 0, 3, DefaultTouristTaxRate, decimal.Zero},
		{"custom rate", 2, 2, decimal.RequireFromString("1.5"), decimal.NewFromInt(6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTouristTax(tt.guests, tt.nights, tt.rate)
			if !got.Equal(tt.want) {
				t.Fatalf("CalculateTouristTax(%d, %d, %s) = %s, want %s", tt.guests, tt.nights, tt.rate, got, tt.want)
			}
		})
	}
}

func TestNightsBetween(t *testing.T) {
	checkIn := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		checkOut time.Time
		want     int
	}{
		{"whole days", checkIn.AddDate(0, 0, 3), 3},
		{"partial day rounds up", checkIn.Add(49 * time.Hour), 3},
		{"same instant", checkIn, 0},
		{"before check-in", checkIn.Add(-36 * time.Hour), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NightsBetween(checkIn, tt.checkOut); got != tt.want {
				t.Fatalf("NightsBetween = %d, want %d", got, tt.want)
			}
		})
	}
}
