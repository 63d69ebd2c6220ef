package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/aptledger/internal/domain"
)

const selectApartment = `
	SELECT a.id, a.name, a.address, a.currency, a.shares, a.created_at,
		COALESCE((SELECT array_agg(o.user_id ORDER BY o.position)
			FROM apartment_owners o WHERE o.apartment_id = a.id), '{}') AS owners
	FROM apartments a
`

// ApartmentRepository implements usecase.ApartmentRepository.
type ApartmentRepository struct {
	db DBTX
}

// NewApartmentRepository creates a new ApartmentRepository.
func NewApartmentRepository(db DBTX) *ApartmentRepository {
	return &ApartmentRepository{db: db}
}

// Create inserts an apartment together with its owners.
func (r *ApartmentRepository) Create(ctx context.Context, apartment *domain.Apartment) error {
	shares, err := marshalShares(apartment.Shares)
	if err != nil {
		return err
	}

	query := `
		WITH apt AS (
			INSERT INTO apartments (id, name, address, currency, shares, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		)
		INSERT INTO apartment_owners (apartment_id, user_id, position)
		SELECT apt.id, o.user_id, o.ord
		FROM apt, unnest($7::text[]) WITH ORDINALITY AS o(user_id, ord)
	`

	_, err = conn(ctx, r.db).Exec(ctx, query,
		apartment.ID,
		apartment.Name,
		apartment.Address,
		apartment.Currency,
		shares,
		timeToPgTimestamptz(apartment.CreatedAt),
		apartment.Owners,
	)
	if hasCode(err, pgErrUniqueViolation) {
		return fmt.Errorf("%w: apartment %s", domain.ErrAlreadyExists, apartment.ID)
	}

	return err
}

// GetByID retrieves an apartment by ID.
func (r *ApartmentRepository) GetByID(ctx context.Context, id string) (*domain.Apartment, error) {
	apartment, err := scanApartment(conn(ctx, r.db).QueryRow(ctx, selectApartment+` WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrApartmentNotFound
	}
	return apartment, err
}

// ListByOwner lists the apartments a user owns, oldest first.
func (r *ApartmentRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Apartment, error) {
	query := selectApartment + `
		WHERE EXISTS (SELECT 1 FROM apartment_owners o WHERE o.apartment_id = a.id AND o.user_id = $1)
		ORDER BY a.created_at, a.id
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
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
	data, err := marshalShares(shares)
	if err != nil {
		return err
	}

	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE apartments SET shares = $2 WHERE id = $1`, id, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrApartmentNotFound
	}
	return nil
}

// AddOwner appends userID to the apartment owners. Adding an existing owner is a no-op.
func (r *ApartmentRepository) AddOwner(ctx context.Context, id, userID string) error {
	query := `
		INSERT INTO apartment_owners (apartment_id, user_id, position)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM apartment_owners WHERE apartment_id = $1
		ON CONFLICT (apartment_id, user_id) DO NOTHING
	`

	_, err := conn(ctx, r.db).Exec(ctx, query, id, userID)
	if hasCode(err, pgErrForeignKeyViolation) {
		return domain.ErrApartmentNotFound
	}
	return err
}

// RemoveOwner removes userID from the apartment owners.
func (r *ApartmentRepository) RemoveOwner(ctx context.Context, id, userID string) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`DELETE FROM apartment_owners WHERE apartment_id = $1 AND user_id = $2`, id, userID)
	return err
}

func scanApartment(row pgx.Row) (*domain.Apartment, error) {
	var (
		apartment domain.Apartment
		shares    []byte
	)

	err := row.Scan(
		&apartment.ID,
		&apartment.Name,
		&apartment.Address,
		&apartment.Currency,
		&shares,
		&apartment.CreatedAt,
		&apartment.Owners,
	)
	if err != nil {
		return nil, err
	}

	if apartment.Shares, err = unmarshalShares(shares); err != nil {
		return nil, err
	}
	return &apartment, nil
}

func marshalShares(shares domain.SharePlan) ([]byte, error) {
	if shares == nil {
		shares = domain.SharePlan{}
	}
	data, err := json.Marshal(shares)
	if err != nil {
		return nil, fmt.Errorf("encode shares: %w", err)
	}
	return data, nil
}

func unmarshalShares(data []byte) (domain.SharePlan, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var shares domain.SharePlan
	if err := json.Unmarshal(data, &shares); err != nil {
		return nil, fmt.Errorf("decode shares: %w", err)
	}
	if len(shares) == 0 {
		return nil, nil
	}
	return shares, nil
}
