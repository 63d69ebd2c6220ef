package domain

import (
	"time"
)

// Guest is a transient visitor registered against an apartment.
type Guest struct {
	ID          string
	ApartmentID string
	FirstName   string
	LastName    string
	IDNumber    string
	IDImageURL  string
	CreatedAt   time.Time
}

// FullName returns "First Last".
func (g *Guest) FullName() string {
	switch {
	case g.FirstName == "":
		return g.LastName
	case g.LastName == "":
		return g.FirstName
	default:
		return g.FirstName + " " + g.LastName
	}
}

// Booking is a stay of one or more guests between check-in and check-out.
type Booking struct {
	ApartmentID string
	GuestIDs    []string
	CheckIn     time.Time
	CheckOut    time.Time
}

// Validate checks the stay covers at least one night.
func (b *Booking) Validate() error {
	if len(b.GuestIDs) == 0 {
		return ErrInvalidArgument
	}
	if !b.CheckOut.After(b.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Dates returns every calendar date of the stay, check-in included, check-out excluded.
func (b *Booking) Dates() []time.Time {
	start := truncateDay(b.CheckIn)
	end := truncateDay(b.CheckOut)

	var dates []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
