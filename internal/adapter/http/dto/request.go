package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

// CreateApartmentRequest represents a request to create an apartment.
type CreateApartmentRequest struct {
	Name     string                     `json:"name"`
	Address  string                     `json:"address"`
	Currency string                     `json:"currency"`
	Owners   []string                   `json:"owners"`
	Shares   map[string]decimal.Decimal `json:"shares,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateApartmentRequest) ToUseCaseInput() usecase.CreateApartmentInput {
	return usecase.CreateApartmentInput{
		Name:     r.Name,
		Address:  r.Address,
		Currency: r.Currency,
		OwnerIDs: r.Owners,
		Shares:   domain.SharePlan(r.Shares),
	}
}

// UpdateSharesRequest replaces an apartment's share plan.
type UpdateSharesRequest struct {
	Shares map[string]decimal.Decimal `json:"shares"`
}

// CreateExpenseRequest represents a request to record an expense.
type CreateExpenseRequest struct {
	PayerID     string          `json:"payerId"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	PhotoURLs   []string        `json:"photoUrls,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateExpenseRequest) ToUseCaseInput(apartmentID string) (usecase.CreateExpenseInput, error) {
	kind, err := domain.ParseExpenseType(r.Type)
	if err != nil {
		return usecase.CreateExpenseInput{}, err
	}

	return usecase.CreateExpenseInput{
		ApartmentID: apartmentID,
		PayerID:     r.PayerID,
		Type:        kind,
		Description: r.Description,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Date:        r.Date,
		Notes:       r.Notes,
		PhotoURLs:   r.PhotoURLs,
	}, nil
}

// CreatePaymentRequest represents a request to record a payment.
type CreatePaymentRequest struct {
	From              string          `json:"from"`
	To                string          `json:"to"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency,omitempty"`
	Date              *time.Time      `json:"date,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	RelatedExpenseIDs []string        `json:"relatedExpenseIds,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePaymentRequest) ToUseCaseInput(apartmentID string) usecase.CreatePaymentInput {
	return usecase.CreatePaymentInput{
		ApartmentID:       apartmentID,
		FromParticipantID: r.From,
		ToParticipantID:   r.To,
		Amount:            r.Amount,
		Currency:          r.Currency,
		Date:              r.Date,
		Reason:            r.Reason,
		RelatedExpenseIDs: r.RelatedExpenseIDs,
	}
}

// CreateGuestRequest represents a request to register a guest.
type CreateGuestRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	IDNumber   string `json:"idNumber"`
	IDImageURL string `json:"idImageUrl,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateGuestRequest) ToUseCaseInput(apartmentID string) usecase.CreateGuestInput {
	return usecase.CreateGuestInput{
		ApartmentID: apartmentID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		IDNumber:    r.IDNumber,
		IDImageURL:  r.IDImageURL,
	}
}

// CreateBookingRequest represents a request to book a stay.
type CreateBookingRequest struct {
	GuestIDs []string  `json:"guestIds"`
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateBookingRequest) ToUseCaseInput(apartmentID string) usecase.CreateBookingInput {
	return usecase.CreateBookingInput{
		ApartmentID: apartmentID,
		GuestIDs:    r.GuestIDs,
		CheckIn:     r.CheckIn,
		CheckOut:    r.CheckOut,
	}
}

// SetDayRequest sets the status of one day.
type SetDayRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// ToUseCaseInput converts to use case input.
func (r *SetDayRequest) ToUseCaseInput(apartmentID string, year, month, day int) (usecase.SetDayInput, error) {
	status, err := domain.ParseDayStatus(r.Status)
	if err != nil {
		return usecase.SetDayInput{}, err
	}

	return usecase.SetDayInput{
		ApartmentID: apartmentID,
		Year:        year,
		Month:       month,
		Day:         day,
		Status:      status,
		Notes:       r.Notes,
	}, nil
}

// BulkSetDaysRequest sets the status of the days in [startDay, endDay].
type BulkSetDaysRequest struct {
	StartDay int    `json:"startDay"`
	EndDay   int    `json:"endDay"`
	Status   string `json:"status"`
	Notes    string `json:"notes"`
}

// ToUseCaseInput converts to use case input.
func (r *BulkSetDaysRequest) ToUseCaseInput(apartmentID string, year, month int) (usecase.BulkSetDaysInput, error) {
	status, err := domain.ParseDayStatus(r.Status)
	if err != nil {
		return usecase.BulkSetDaysInput{}, err
	}

	return usecase.BulkSetDaysInput{
		ApartmentID: apartmentID,
		Year:        year,
		Month:       month,
		StartDay:    r.StartDay,
		EndDay:      r.EndDay,
		Status:      status,
		Notes:       r.Notes,
	}, nil
}

// ProvisionUserRequest creates a user inside an apartment.
type ProvisionUserRequest struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	ApartmentID  string `json:"apartmentId"`
	TempPassword string `json:"tempPassword"`
}

// ToUseCaseInput converts to use case input.
func (r *ProvisionUserRequest) ToUseCaseInput() usecase.ProvisionUserInput {
	return usecase.ProvisionUserInput{
		Email:        strings.TrimSpace(r.Email),
		Role:         domain.Role(r.Role),
		ApartmentID:  r.ApartmentID,
		TempPassword: r.TempPassword,
	}
}

// ParseStayQuery parses the guests, check_in and check_out query values of a tax quote.
// Dates are either RFC 3339 timestamps or YYYY-MM-DD.
func ParseStayQuery(guests, checkIn, checkOut string) (usecase.TouristTaxInput, error) {
	var input usecase.TouristTaxInput

	var err error
	if input.Guests, err = strconv.Atoi(strings.TrimSpace(guests)); err != nil {
		return input, fmt.Errorf("%w: guests must be a number", domain.ErrInvalidArgument)
	}
	if input.CheckIn, err = ParseDate(checkIn); err != nil {
		return input, err
	}
	if input.CheckOut, err = ParseDate(checkOut); err != nil {
		return input, err
	}
	return input, nil
}

// ParseDate accepts an RFC 3339 timestamp or a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", domain.ErrInvalidArgument, s)
}
