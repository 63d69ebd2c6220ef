package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

// ApartmentResponse represents an apartment in API responses.
type ApartmentResponse struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Address   string                     `json:"address"`
	Currency  string                     `json:"currency"`
	Owners    []string                   `json:"owners"`
	Shares    map[string]decimal.Decimal `json:"shares,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
}

// ApartmentFromDomain converts a domain apartment to a response.
func ApartmentFromDomain(a *domain.Apartment) *ApartmentResponse {
	return &ApartmentResponse{
		ID:        a.ID,
		Name:      a.Name,
		Address:   a.Address,
		Currency:  a.Currency,
		Owners:    nonNil(a.Owners),
		Shares:    a.Shares,
		CreatedAt: a.CreatedAt,
	}
}

// ApartmentsFromDomain converts domain apartments to responses.
func ApartmentsFromDomain(apartments []*domain.Apartment) []*ApartmentResponse {
	result := make([]*ApartmentResponse, len(apartments))
	for i, a := range apartments {
		result[i] = ApartmentFromDomain(a)
	}
	return result
}

// BalanceResponse is one participant's net position.
type BalanceResponse struct {
	ParticipantID string          `json:"participantId"`
	DisplayName   string          `json:"displayName"`
	Net           decimal.Decimal `json:"net"`
}

// BalancesFromDomain converts balances to responses.
func BalancesFromDomain(balances []domain.Balance) []BalanceResponse {
	result := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		result[i] = BalanceResponse{ParticipantID: b.ParticipantID, DisplayName: b.DisplayName, Net: b.Net}
	}
	return result
}

// ExpenseResponse represents an expense in API responses.
type ExpenseResponse struct {
	ID          string             `json:"id"`
	ApartmentID string             `json:"apartmentId"`
	PayerID     string             `json:"payerId"`
	Type        domain.ExpenseType `json:"type"`
	Description string             `json:"description"`
	Amount      decimal.Decimal    `json:"amount"`
	Currency    string             `json:"currency"`
	Date        time.Time          `json:"date"`
	Notes       string             `json:"notes,omitempty"`
	PhotoURLs   []string           `json:"photoUrls,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// ExpenseFromDomain converts a domain expense to a response.
func ExpenseFromDomain(e *domain.Expense) *ExpenseResponse {
	return &ExpenseResponse{
		ID:          e.ID,
		ApartmentID: e.ApartmentID,
		PayerID:     e.PayerID,
		Type:        e.Type,
		Description: e.Description,
		Amount:      e.Amount,
		Currency:    e.Currency,
		Date:        e.Date,
		Notes:       e.Notes,
		PhotoURLs:   e.PhotoURLs,
		CreatedAt:   e.CreatedAt,
	}
}

// ExpensesFromDomain converts domain expenses to responses.
func ExpensesFromDomain(expenses []*domain.Expense) []*ExpenseResponse {
	result := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		result[i] = ExpenseFromDomain(e)
	}
	return result
}

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID                string          `json:"id"`
	ApartmentID       string          `json:"apartmentId"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Date              time.Time       `json:"date"`
	Reason            string          `json:"reason,omitempty"`
	RelatedExpenseIDs []string        `json:"relatedExpenseIds,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// PaymentFromDomain converts a domain payment to a response.
func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                p.ID,
		ApartmentID:       p.ApartmentID,
		From:              p.FromParticipantID,
		To:                p.ToParticipantID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Date:              p.Date,
		Reason:            p.Reason,
		RelatedExpenseIDs: p.RelatedExpenseIDs,
		CreatedAt:         p.CreatedAt,
	}
}

// PaymentsFromDomain converts domain payments to responses.
func PaymentsFromDomain(payments []*domain.Payment) []*PaymentResponse {
	result := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		result[i] = PaymentFromDomain(p)
	}
	return result
}

// GuestResponse represents a guest in API responses.
type GuestResponse struct {
	ID          string    `json:"id"`
	ApartmentID string    `json:"apartmentId"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	IDNumber    string    `json:"idNumber"`
	IDImageURL  string    `json:"idImageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GuestFromDomain converts a domain guest to a response.
func GuestFromDomain(g *domain.Guest) *GuestResponse {
	return &GuestResponse{
		ID:          g.ID,
		ApartmentID: g.ApartmentID,
		FirstName:   g.FirstName,
		LastName:    g.LastName,
		IDNumber:    g.IDNumber,
		IDImageURL:  g.IDImageURL,
		CreatedAt:   g.CreatedAt,
	}
}

// GuestsFromDomain converts domain guests to responses.
func GuestsFromDomain(guests []*domain.Guest) []*GuestResponse {
	result := make([]*GuestResponse, len(guests))
	for i, g := range guests {
		result[i] = GuestFromDomain(g)
	}
	return result
}

// DayResponse is a stored day record.
type DayResponse struct {
	Year      int              `json:"year"`
	Month     int              `json:"month"`
	Day       int              `json:"day"`
	Status    domain.DayStatus `json:"status"`
	Notes     string           `json:"notes"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// DayFromDomain converts a day record to a response.
func DayFromDomain(r *domain.DayRecord) *DayResponse {
	return &DayResponse{
		Year:      r.Year,
		Month:     r.Month,
		Day:       r.Day,
		Status:    r.Status,
		Notes:     r.Notes,
		UpdatedAt: r.UpdatedAt,
	}
}

// DaysFromDomain converts day records to responses.
func DaysFromDomain(records []*domain.DayRecord) []*DayResponse {
	result := make([]*DayResponse, len(records))
	for i, r := range records {
		result[i] = DayFromDomain(r)
	}
	return result
}

// DayFailureResponse is a day a bulk write could not persist.
type DayFailureResponse struct {
	Day   int    `json:"day"`
	Error string `json:"error"`
}

// BulkResponse reports a multi-day write.
type BulkResponse struct {
	Days     []*DayResponse       `json:"days"`
	Failures []DayFailureResponse `json:"failures"`
}

// BulkFromResult converts a bulk write result to a response.
func BulkFromResult(result *usecase.BulkResult) *BulkResponse {
	failures := make([]DayFailureResponse, len(result.Failures))
	for i, f := range result.Failures {
		failures[i] = DayFailureResponse{Day: f.Day, Error: f.Err.Error()}
	}
	return &BulkResponse{Days: DaysFromDomain(result.Records), Failures: failures}
}

// StatsResponse carries status counts and percentages for a month.
type StatsResponse struct {
	DaysInMonth   int                `json:"daysInMonth"`
	Free          int                `json:"free"`
	Occupied      int                `json:"occupied"`
	Maintenance   int                `json:"maintenance"`
	Cleaning      int                `json:"cleaning"`
	OccupancyRate float64            `json:"occupancyRate"`
	Percentages   map[string]float64 `json:"percentages"`
}

// StatsFromDomain converts month statistics to a response.
func StatsFromDomain(s domain.MonthStatistics) StatsResponse {
	percentages := make(map[string]float64, len(domain.DayStatuses))
	for _, st := range domain.DayStatuses {
		percentages[st.String()] = s.Percent(st)
	}
	return StatsResponse{
		DaysInMonth:   s.DaysInMonth,
		Free:          s.Free,
		Occupied:      s.Occupied,
		Maintenance:   s.Maintenance,
		Cleaning:      s.Cleaning,
		OccupancyRate: s.OccupancyRate(),
		Percentages:   percentages,
	}
}

// CellResponse is one grid cell; Day is 0 for padding cells.
type CellResponse struct {
	Day    int               `json:"day"`
	Status *domain.DayStatus `json:"status,omitempty"`
	Notes  string            `json:"notes,omitempty"`
}

// MonthResponse is a month's records, grid and statistics.
type MonthResponse struct {
	ApartmentID string           `json:"apartmentId"`
	Year        int              `json:"year"`
	Month       int              `json:"month"`
	Label       string           `json:"label"`
	Days        []*DayResponse   `json:"days"`
	Weeks       [][]CellResponse `json:"weeks"`
	Stats       StatsResponse    `json:"stats"`
}

// MonthFromOverview converts a month overview to a response.
func MonthFromOverview(o *usecase.MonthOverview) *MonthResponse {
	weeks := o.Grid.Weeks()
	out := make([][]CellResponse, len(weeks))
	for i, week := range weeks {
		out[i] = make([]CellResponse, len(week))
		for j, cell := range week {
			if cell.Empty() {
				continue
			}
			status := cell.Record.Status
			out[i][j] = CellResponse{Day: cell.Day, Status: &status, Notes: cell.Record.Notes}
		}
	}

	return &MonthResponse{
		ApartmentID: o.ApartmentID,
		Year:        o.Year,
		Month:       o.Month,
		Label:       o.Label,
		Days:        DaysFromDomain(o.Records),
		Weeks:       out,
		Stats:       StatsFromDomain(o.Stats),
	}
}

// BookingResponse reports a booking.
type BookingResponse struct {
	GuestIDs   []string         `json:"guestIds"`
	CheckIn    time.Time        `json:"checkIn"`
	CheckOut   time.Time        `json:"checkOut"`
	Nights     int              `json:"nights"`
	Days       []*DayResponse   `json:"days"`
	TaxAmount  decimal.Decimal  `json:"taxAmount"`
	TaxExpense *ExpenseResponse `json:"taxExpense,omitempty"`
}

// BookingFromResult converts a booking result to a response.
func BookingFromResult(r *usecase.BookingResult) *BookingResponse {
	resp := &BookingResponse{
		GuestIDs:  r.Booking.GuestIDs,
		CheckIn:   r.Booking.CheckIn,
		CheckOut:  r.Booking.CheckOut,
		Nights:    r.Nights,
		Days:      DaysFromDomain(r.Days),
		TaxAmount: r.TaxAmount,
	}
	if r.TaxExpense != nil {
		resp.TaxExpense = ExpenseFromDomain(r.TaxExpense)
	}
	return resp
}

// TouristTaxResponse is a tax quote.
type TouristTaxResponse struct {
	Guests         int             `json:"guests"`
	Nights         int             `json:"nights"`
	BillableNights int             `json:"billableNights"`
	Rate           decimal.Decimal `json:"rate"`
	Amount         decimal.Decimal `json:"amount"`
}

// TouristTaxFromQuote converts a quote to a response.
func TouristTaxFromQuote(q *usecase.TouristTaxQuote) *TouristTaxResponse {
	return &TouristTaxResponse{
		Guests:         q.Guests,
		Nights:         q.Nights,
		BillableNights: q.BillableNights,
		Rate:           q.Rate,
		Amount:         q.Amount,
	}
}

// UserResponse represents a user in API responses. The password hash never leaves the service.
type UserResponse struct {
	ID                  string      `json:"id"`
	Email               string      `json:"email"`
	DisplayName         string      `json:"displayName"`
	Role                domain.Role `json:"role"`
	ForcePasswordChange bool        `json:"forcePasswordChange"`
	CreatedAt           time.Time   `json:"createdAt"`
}

// UserFromDomain converts a domain user to a response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:                  u.ID,
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		Role:                u.Role,
		ForcePasswordChange: u.ForcePasswordChange,
		CreatedAt:           u.CreatedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DayWriteErrorResponse is returned when a day could not be persisted. Day is
// the record that was attempted.
type DayWriteErrorResponse struct {
	ErrorResponse
	Day *DayResponse `json:"day,omitempty"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
