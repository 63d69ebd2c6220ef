package postgres

import (
	"context"
	"fmt"

	"github.com/iho/aptledger/internal/domain"
)

// CalendarRepository implements usecase.CalendarRepository.
type CalendarRepository struct {
	db DBTX
}

// NewCalendarRepository creates a new CalendarRepository.
func NewCalendarRepository(db DBTX) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Upsert writes a day record, replacing any existing record for the same day.
func (r *CalendarRepository) Upsert(ctx context.Context, record *domain.DayRecord) error {
	query := `
		INSERT INTO calendar_days (apartment_id, year, month, day, status, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (apartment_id, year, month, day) DO UPDATE
		SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		record.ApartmentID,
		record.Year,
		record.Month,
		record.Day,
		record.Status.String(),
		record.Notes,
		timeToPgTimestamptz(record.UpdatedAt),
	)
	if hasCode(err, pgErrForeignKeyViolation) {
		return domain.ErrApartmentNotFound
	}

	return err
}

// ListMonth lists the stored records of a month in day order.
func (r *CalendarRepository) ListMonth(ctx context.Context, apartmentID string, year, month int) ([]*domain.DayRecord, error) {
	query := `
		SELECT day, status, notes, updated_at
		FROM calendar_days
		WHERE apartment_id = $1 AND year = $2 AND month = $3
		ORDER BY day
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, apartmentID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.DayRecord
	for rows.Next() {
		rec := &domain.DayRecord{ApartmentID: apartmentID, Year: year, Month: month}

		var status string
		if err := rows.Scan(&rec.Day, &status, &rec.Notes, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if rec.Status, err = domain.ParseDayStatus(status); err != nil {
			return nil, fmt.Errorf("day %s: %w", rec.Key(), err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
