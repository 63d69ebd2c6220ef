package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iho/aptledger/internal/domain"
)

const selectApartment = `
	SELECT a.id, a.name, a.address, a.currency, a.shares, a.created_at,
		(SELECT json_group_array(user_id) FROM
			(SELECT o.user_id FROM apartment_owners o WHERE o.apartment_id = a.id ORDER BY o.position)) AS owners
	FROM apartments a
`

// ApartmentRepository implements usecase.ApartmentRepository.
type ApartmentRepository struct {
	db *sql.DB
}

// NewApartmentRepository creates a new ApartmentRepository.
func NewApartmentRepository(db *sql.DB) *ApartmentRepository {
	return &ApartmentRepository{db: db}
}

// Create inserts an apartment together with its owners.
func (r *ApartmentRepository) Create(ctx context.Context, apartment *domain.Apartment) error {
	shares, err := encodeShares(apartment.Shares)
	if err != nil {
		return err
	}

	return atomic(ctx, r.db, func(q querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO apartments (id, name, address, currency, shares, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			apartment.ID, apartment.Name, apartment.Address, apartment.Currency, shares, formatTime(apartment.CreatedAt))
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: apartment %s", domain.ErrAlreadyExists, apartment.ID)
		}
		if err != nil {
			return err
		}

		for i, owner := range apartment.Owners {
			if _, err := q.ExecContext(ctx,
				`INSERT INTO apartment_owners (apartment_id, user_id, position) VALUES (?, ?, ?)`,
				apartment.ID, owner, i+1); err != nil {
				return fmt.Errorf("add owner %s: %w", owner, err)
			}
		}
		return nil
	})
}

// GetByID retrieves an apartment by ID.
func (r *ApartmentRepository) GetByID(ctx context.Context, id string) (*domain.Apartment, error) {
	apartment, err := scanApartment(conn(ctx, r.db).QueryRowContext(ctx, selectApartment+` WHERE a.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrApartmentNotFound
	}
	return apartment, err
}

// ListByOwner lists the apartments a user owns, oldest first.
func (r *ApartmentRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Apartment, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, selectApartment+`
		WHERE EXISTS (SELECT 1 FROM apartment_owners o WHERE o.apartment_id = a.id AND o.user_id = ?)
		ORDER BY a.created_at, a.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apartments []*domain.Apartment
	for rows.Next() {
		apartment, err := scanApartment(rows)
		if err != nil {
			return nil, err
		}
		apartments = append(apartments, apartment)
	}
	return apartments, rows.Err()
}

// UpdateShares replaces the share plan of an apartment.
func (r *ApartmentRepository) UpdateShares(ctx context.Context, id string, shares domain.SharePlan) error {
	data, err := encodeShares(shares)
	if err != nil {
		return err
	}

	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE apartments SET shares = ? WHERE id = ?`, data, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrApartmentNotFound
	}
	return nil
}

// AddOwner appends userID to the apartment owners. Adding an existing owner is a no-op.
func (r *ApartmentRepository) AddOwner(ctx context.Context, id, userID string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO apartment_owners (apartment_id, user_id, position)
		SELECT ?1, ?2, COALESCE(MAX(position), 0) + 1 FROM apartment_owners WHERE apartment_id = ?1
		ON CONFLICT (apartment_id, user_id) DO NOTHING`, id, userID)
	if isForeignKeyViolation(err) {
		return domain.ErrApartmentNotFound
	}
	return err
}

// RemoveOwner removes userID from the apartment owners.
func (r *ApartmentRepository) RemoveOwner(ctx context.Context, id, userID string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM apartment_owners WHERE apartment_id = ? AND user_id = ?`, id, userID)
	return err
}

func scanApartment(row scanner) (*domain.Apartment, error) {
	var (
		apartment              domain.Apartment
		shares, created, owners string
	)

	if err := row.Scan(&apartment.ID, &apartment.Name, &apartment.Address, &apartment.Currency,
		&shares, &created, &owners); err != nil {
		return nil, err
	}

	var err error
	if apartment.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if apartment.Shares, err = decodeShares(shares); err != nil {
		return nil, err
	}
	if apartment.Owners, err = decodeStrings(owners); err != nil {
		return nil, err
	}
	return &apartment, nil
}

func encodeShares(shares domain.SharePlan) (string, error) {
	if shares == nil {
		shares = domain.SharePlan{}
	}
	data, err := json.Marshal(shares)
	if err != nil {
		return "", fmt.Errorf("encode shares: %w", err)
	}
	return string(data), nil
}

func decodeShares(s string) (domain.SharePlan, error) {
	var shares domain.SharePlan
	if err := json.Unmarshal([]byte(s), &shares); err != nil {
		return nil, fmt.Errorf("decode shares: %w", err)
	}
	if len(shares) == 0 {
		return nil, nil
	}
	return shares, nil
}
