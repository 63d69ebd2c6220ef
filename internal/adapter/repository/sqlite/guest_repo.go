package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iho/aptledger/internal/domain"
)

const guestColumns = `id, apartment_id, first_name, last_name, id_number, id_image_url, created_at`

// GuestRepository implements usecase.GuestRepository.
type GuestRepository struct {
	db *sql.DB
}

// NewGuestRepository creates a new GuestRepository.
func NewGuestRepository(db *sql.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// Create inserts a guest.
func (r *GuestRepository) Create(ctx context.Context, guest *domain.Guest) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO guests (`+guestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		guest.ID, guest.ApartmentID, guest.FirstName, guest.LastName, guest.IDNumber, guest.IDImageURL,
		formatTime(guest.CreatedAt))
	if isForeignKeyViolation(err) {
		return domain.ErrApartmentNotFound
	}
	return err
}

// GetByID retrieves a guest by ID.
func (r *GuestRepository) GetByID(ctx context.Context, id string) (*domain.Guest, error) {
	guest, err := scanGuest(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGuestNotFound
	}
	return guest, err
}

// ListByApartment lists an apartment's guests by last name.
func (r *GuestRepository) ListByApartment(ctx context.Context, apartmentID string) ([]*domain.Guest, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE apartment_id = ? ORDER BY last_name, first_name, id`, apartmentID)
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
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGuestNotFound
	}
	return nil
}

func scanGuest(row scanner) (*domain.Guest, error) {
	var (
		g       domain.Guest
		created string
	)
	if err := row.Scan(&g.ID, &g.ApartmentID, &g.FirstName, &g.LastName, &g.IDNumber, &g.IDImageURL, &created); err != nil {
		return nil, err
	}

	var err error
	if g.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &g, nil
}
