package domain

import "time"

// Event types
const (
	EventTypeExpenseCreated    = "expense.created"
	EventTypeExpenseDeleted    = "expense.deleted"
	EventTypePaymentCreated    = "payment.created"
	EventTypeBookingCreated    = "booking.created"
	EventTypeDaysUpdated       = "calendar.days_updated"
	EventTypeSharesUpdated     = "apartment.shares_updated"
	EventTypeUserProvisioned   = "user.provisioned"
	EventTypeUserDeprovisioned = "user.deprovisioned"
)

// Aggregate types
const (
	AggregateTypeApartment = "apartment"
	AggregateTypeUser      = "user"
)

// Event is a domain event published after a successful write.
type Event struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
}

// ExpenseCreatedEvent payload
type ExpenseCreatedEvent struct {
	ExpenseID string `json:"expense_id"`
	PayerID   string `json:"payer_id"`
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// BookingCreatedEvent payload
type BookingCreatedEvent struct {
	GuestIDs   []string `json:"guest_ids"`
	CheckIn    string   `json:"check_in"`
	CheckOut   string   `json:"check_out"`
	Nights     int      `json:"nights"`
	TaxAmount  string   `json:"tax_amount"`
	TaxExpense string   `json:"tax_expense_id,omitempty"`
}

// DaysUpdatedEvent payload
type DaysUpdatedEvent struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Days   []int  `json:"days"`
	Status string `json:"status"`
}
