package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
)

const expenseColumns = `id, apartment_id, payer_id, type, description, amount, currency, spent_at, notes, photo_urls, created_at`

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	db *sql.DB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts an expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	photos, err := encodeStrings(expense.PhotoURLs)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.ApartmentID,
		expense.PayerID,
		expense.Type.String(),
		expense.Description,
		expense.Amount.String(),
		expense.Currency,
		formatTime(expense.Date),
		expense.Notes,
		photos,
		formatTime(expense.CreatedAt),
	)
	if isForeignKeyViolation(err) {
		return domain.ErrApartmentNotFound
	}
	return err
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	expense, err := scanExpense(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrExpenseNotFound
	}
	return expense, err
}

// ListByApartment lists expenses newest first. Open range bounds are unrestricted.
func (r *ExpenseRepository) ListByApartment(ctx context.Context, apartmentID string, dates domain.DateRange) ([]*domain.Expense, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE apartment_id = ?1
			AND (?2 IS NULL OR spent_at >= ?2)
			AND (?3 IS NULL OR spent_at <= ?3)
		ORDER BY spent_at DESC, created_at DESC`,
		apartmentID, optionalTime(dates.From), optionalTime(dates.To))
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
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

func scanExpense(row scanner) (*domain.Expense, error) {
	var (
		e                                domain.Expense
		kind, amount, spent, created, ph string
	)

	if err := row.Scan(&e.ID, &e.ApartmentID, &e.PayerID, &kind, &e.Description, &amount,
		&e.Currency, &spent, &e.Notes, &ph, &created); err != nil {
		return nil, err
	}

	var err error
	if e.Type, err = domain.ParseExpenseType(kind); err != nil {
		return nil, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("expense %s amount: %w", e.ID, err)
	}
	if e.Date, err = parseTime(spent); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.PhotoURLs, err = decodeStrings(ph); err != nil {
		return nil, err
	}
	return &e, nil
}
