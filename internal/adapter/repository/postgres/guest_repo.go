package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/aptledger/internal/domain"
)

const guestColumns = `id, apartment_id, first_name, last_name, id_number, id_image_url, created_at`

// GuestRepository implements usecase.GuestRepository.
type GuestRepository struct {
	db DBTX
}

// NewGuestRepository creates a new GuestRepository.
func NewGuestRepository(db DBTX) *GuestRepository {
	return &GuestRepository{db: db}
}

// Create inserts a guest.
func (r *GuestRepository) Create(ctx context.Context, guest *domain.Guest) error {
	query := `INSERT INTO guests (` + guestColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		guest.ID,
		guest.ApartmentID,
		guest.FirstName,
		guest.LastName,
		guest.IDNumber,
		guest.IDImageURL,
		timeToPgTimestamptz(guest.CreatedAt),
	)
	if hasCode(err, pgErrForeignKeyViolation) {
		return domain.ErrApartmentNotFound
	}

	return err
}

// GetByID retrieves a guest by ID.
func (r *GuestRepository) GetByID(ctx context.Context, id string) (*domain.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE id = $1`

	guest, err := scanGuest(conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGuestNotFound
	}
	return guest, err
}

// ListByApartment lists an apartment's guests by last name.
func (r *GuestRepository) ListByApartment(ctx context.Context, apartmentID string) ([]*domain.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE apartment_id = $1 ORDER BY last_name, first_name, id`

	rows, err := conn(ctx, r.db).Query(ctx, query, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guests []*domain.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, guest)
	}

	return guests, rows.Err()
}

// Delete deletes a guest.
func (r *GuestRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM guests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGuestNotFound
	}
	return nil
}

func scanGuest(row pgx.Row) (*domain.Guest, error) {
	var g domain.Guest
	if err := row.Scan(&g.ID, &g.ApartmentID, &g.FirstName, &g.LastName, &g.IDNumber, &g.IDImageURL, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
