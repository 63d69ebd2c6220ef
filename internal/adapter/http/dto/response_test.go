package dto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

func TestMonthFromOverview(t *testing.T) {
	records := []*domain.DayRecord{
		{ApartmentID: "apt-1", Year: 2025, Month: 5, Day: 2, Status: domain.DayOccupied, Notes: "Rossi"},
	}
	grid, err := domain.BuildMonthGrid("apt-1", 2025, 5, records)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}

	resp := MonthFromOverview(&usecase.MonthOverview{
		ApartmentID: "apt-1",
		Year:        2025,
		Month:       5,
		Label:       domain.MonthLabel(2025, 5),
		Records:     records,
		Grid:        grid,
		Stats:       domain.ComputeMonthStatistics(records, 30),
	})

	if len(resp.Weeks) != len(grid.Cells)/7 {
		t.Fatalf("expected %d weeks, got %d", len(grid.Cells)/7, len(resp.Weeks))
	}
	// June 2025 starts on Sunday.
	if cell := resp.Weeks[0][1]; cell.Day != 2 || *cell.Status != domain.DayOccupied || cell.Notes != "Rossi" {
		t.Fatalf("unexpected cell %+v", cell)
	}
	if resp.Stats.Occupied != 1 || resp.Stats.Free != 29 {
		t.Fatalf("unexpected stats %+v", resp.Stats)
	}
	if resp.Stats.Percentages["occupied"] != 3.3 {
		t.Fatalf("expected 3.3%% occupied, got %v", resp.Stats.Percentages["occupied"])
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"status":"occupied"`) {
		t.Fatalf("expected status names in JSON, got %s", data)
	}
}

func TestBulkFromResult(t *testing.T) {
	resp := BulkFromResult(&usecase.BulkResult{
		Records:  []*domain.DayRecord{{Day: 1, Status: domain.DayCleaning}},
		Failures: []usecase.DayFailure{{Day: 2, Err: errors.New("timeout")}},
	})

	if len(resp.Days) != 1 || len(resp.Failures) != 1 || resp.Failures[0].Day != 2 || resp.Failures[0].Error != "timeout" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestApartmentAndBalanceResponses(t *testing.T) {
	apt := ApartmentFromDomain(&domain.Apartment{ID: "apt-1", Name: "Loft", Currency: "EUR"})
	if apt.Owners == nil {
		t.Fatalf("expected owners to encode as an empty list")
	}

	balances := BalancesFromDomain([]domain.Balance{{ParticipantID: "anna", DisplayName: "Anna", Net: decimal.RequireFromString("60")}})
	data, err := json.Marshal(balances)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[{"participantId":"anna","displayName":"Anna","net":"60"}]` {
		t.Fatalf("unexpected JSON %s", data)
	}
}

func TestUserResponseOmitsPassword(t *testing.T) {
	data, err := json.Marshal(UserFromDomain(&domain.User{ID: "u1", Email: "a@b.it", HashedPassword: "secret-hash", Role: domain.RoleViewer}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret-hash") {
		t.Fatalf("password hash leaked: %s", data)
	}
}
