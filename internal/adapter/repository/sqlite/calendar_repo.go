package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iho/aptledger/internal/domain"
)

// CalendarRepository implements usecase.CalendarRepository.
type CalendarRepository struct {
	db *sql.DB
}

// NewCalendarRepository creates a new CalendarRepository.
func NewCalendarRepository(db *sql.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Upsert writes a day record, replacing any existing record for the same day.
func (r *CalendarRepository) Upsert(ctx context.Context, record *domain.DayRecord) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO calendar_days (apartment_id, year, month, day, status, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (apartment_id, year, month, day) DO UPDATE
		SET status = excluded.status, notes = excluded.notes, updated_at = excluded.updated_at`,
		record.ApartmentID,
		record.Year,
		record.Month,
		record.Day,
		record.Status.String(),
		record.Notes,
		formatTime(record.UpdatedAt),
	)
	if isForeignKeyViolation(err) {
		return domain.ErrApartmentNotFound
	}
	return err
}

// ListMonth lists the stored records of a month in day order.
func (r *CalendarRepository) ListMonth(ctx context.Context, apartmentID string, year, month int) ([]*domain.DayRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT day, status, notes, updated_at
		FROM calendar_days
		WHERE apartment_id = ? AND year = ? AND month = ?
		ORDER BY day`, apartmentID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.DayRecord
	for rows.Next() {
		rec := &domain.DayRecord{ApartmentID: apartmentID, Year: year, Month: month}

		var status, updated string
		if err := rows.Scan(&rec.Day, &status, &rec.Notes, &updated); err != nil {
			return nil, err
		}
		if rec.Status, err = domain.ParseDayStatus(status); err != nil {
			return nil, fmt.Errorf("day %s: %w", rec.Key(), err)
		}
		if rec.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
