package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/aptledger/internal/domain"
)

const expenseColumns = `id, apartment_id, payer_id, type, description, amount, currency, spent_at, notes, photo_urls, created_at`

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	db DBTX
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db DBTX) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts an expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	photos := expense.PhotoURLs
	if photos == nil {
		photos = []string{}
	}

	_, err := conn(ctx, r.db).Exec(ctx, query,
		expense.ID,
		expense.ApartmentID,
		expense.PayerID,
		expense.Type.String(),
		expense.Description,
		decimalToNumeric(expense.Amount),
		expense.Currency,
		timeToPgTimestamptz(expense.Date),
		expense.Notes,
		photos,
		timeToPgTimestamptz(expense.CreatedAt),
	)
	if hasCode(err, pgErrForeignKeyViolation) {
		return domain.ErrApartmentNotFound
	}

	return err
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	expense, err := scanExpense(conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrExpenseNotFound
	}
	return expense, err
}

// ListByApartment lists expenses newest first. Open range bounds are unrestricted.
func (r *ExpenseRepository) ListByApartment(ctx context.Context, apartmentID string, dates domain.DateRange) ([]*domain.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE apartment_id = $1
			AND ($2::timestamptz IS NULL OR spent_at >= $2)
			AND ($3::timestamptz IS NULL OR spent_at <= $3)
		ORDER BY spent_at DESC, created_at DESC
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, apartmentID, optionalTimestamptz(dates.From), optionalTimestamptz(dates.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// Delete deletes an expense.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var (
		expense  domain.Expense
		kind     string
		amount   pgtype.Numeric
		spentAt  pgtype.Timestamptz
		created  pgtype.Timestamptz
		photoURL []string
	)

	err := row.Scan(
		&expense.ID,
		&expense.ApartmentID,
		&expense.PayerID,
		&kind,
		&expense.Description,
		&amount,
		&expense.Currency,
		&spentAt,
		&expense.Notes,
		&photoURL,
		&created,
	)
	if err != nil {
		return nil, err
	}

	if expense.Type, err = domain.ParseExpenseType(kind); err != nil {
		return nil, fmt.Errorf("expense %s: %w", expense.ID, err)
	}
	expense.Amount = numericToDecimal(amount)
	expense.Date = spentAt.Time
	expense.CreatedAt = created.Time
	if len(photoURL) > 0 {
		expense.PhotoURLs = photoURL
	}

	return &expense, nil
}
