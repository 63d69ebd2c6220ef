package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
)

func TestCalendarRepositoryUpsert(t *testing.T) {
	mockPool := newMockPool(t)
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mockPool.ExpectExec("INSERT INTO calendar_days").
		WithArgs("apt-1", 2025, 5, 14, "cleaning", "linen", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewCalendarRepository(mockPool)
	err := repo.Upsert(context.Background(), &domain.DayRecord{
		ApartmentID: "apt-1", Year: 2025, Month: 5, Day: 14, Status: domain.DayCleaning, Notes: "linen", UpdatedAt: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestCalendarRepositoryUpsertUnknownApartment(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec("INSERT INTO calendar_days").
		WithArgs("ghost", 2025, 0, 1, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	repo := NewCalendarRepository(mockPool)
	err := repo.Upsert(context.Background(), &domain.DayRecord{ApartmentID: "ghost", Year: 2025, Month: 0, Day: 1})
	if !errors.Is(err, domain.ErrApartmentNotFound) {
		t.Fatalf("expected ErrApartmentNotFound, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestCalendarRepositoryListMonth(t *testing.T) {
	mockPool := newMockPool(t)
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("FROM calendar_days").
		WithArgs("apt-1", 2025, 5).
		WillReturnRows(pgxmock.NewRows([]string{"day", "status", "notes", "updated_at"}).
			AddRow(1, "occupied", "Rossi", at).
			AddRow(2, "maintenance", "", at))

	repo := NewCalendarRepository(mockPool)
	records, err := repo.ListMonth(context.Background(), "apt-1", 2025, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Status != domain.DayOccupied || records[0].Notes != "Rossi" || records[0].Month != 5 {
		t.Fatalf("unexpected first record %+v", records[0])
	}
	if records[1].Status != domain.DayMaintenance {
		t.Fatalf("unexpected second record %+v", records[1])
	}

	assertExpectations(t, mockPool)
}

func TestUserRepositoryNotFound(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(mockPool)
	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryCreateDuplicate(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec("INSERT INTO users").
		WithArgs("u1", "a@example.com", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	repo := NewUserRepository(mockPool)
	err := repo.Create(context.Background(), &domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleViewer})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestApartmentRepositoryGetByIDNotFound(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("FROM apartments a").WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	repo := NewApartmentRepository(mockPool)
	if _, err := repo.GetByID(context.Background(), "ghost"); !errors.Is(err, domain.ErrApartmentNotFound) {
		t.Fatalf("expected ErrApartmentNotFound, got %v", err)
	}
}

func TestSharesRoundTrip(t *testing.T) {
	plan := domain.SharePlan{"a": decimal.RequireFromString("0.7"), "b": decimal.RequireFromString("0.3")}

	data, err := marshalShares(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := unmarshalShares(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got["a"].Equal(plan["a"]) || !got["b"].Equal(plan["b"]) {
		t.Fatalf("expected %v, got %v", plan, got)
	}

	empty, _ := marshalShares(nil)
	if string(empty) != "{}" {
		t.Fatalf("expected empty object, got %s", empty)
	}
	if got, _ := unmarshalShares(empty); got != nil {
		t.Fatalf("expected nil plan for empty object, got %v", got)
	}
}

func TestNumericConversion(t *testing.T) {
	for _, s := range []string{"0", "12.5", "-33.33", "1000000000"} {
		d := decimal.RequireFromString(s)
		if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
			t.Fatalf("round trip of %s gave %s", s, got)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	if !IsRetryableError(&pgconn.PgError{Code: pgErrDeadlock}) {
		t.Fatal("expected deadlock to be retryable")
	}
	if !IsRetryableError(&pgconn.PgError{Code: pgErrSerializationFailure}) {
		t.Fatal("expected serialization failure to be retryable")
	}
	if IsRetryableError(&pgconn.PgError{Code: pgErrUniqueViolation}) {
		t.Fatal("expected unique violation to be permanent")
	}
	if IsRetryableError(errors.New("plain")) {
		t.Fatal("expected plain error to be permanent")
	}
}
