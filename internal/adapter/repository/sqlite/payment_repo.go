package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
)

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	related, err := encodeStrings(payment.RelatedExpenseIDs)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO payments (id, apartment_id, from_participant_id, to_participant_id, amount, currency,
			paid_at, reason, related_expense_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.ApartmentID,
		payment.FromParticipantID,
		payment.ToParticipantID,
		payment.Amount.String(),
		payment.Currency,
		formatTime(payment.Date),
		payment.Reason,
		related,
		formatTime(payment.CreatedAt),
	)
	if isForeignKeyViolation(err) {
		return domain.ErrApartmentNotFound
	}
	return err
}

// ListByApartment lists payments newest first.
func (r *PaymentRepository) ListByApartment(ctx context.Context, apartmentID string) ([]*domain.Payment, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, apartment_id, from_participant_id, to_participant_id, amount, currency,
			paid_at, reason, related_expense_ids, created_at
		FROM payments
		WHERE apartment_id = ?
		ORDER BY paid_at DESC, created_at DESC`, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var (
			p                                domain.Payment
			amount, paid, related, createdAt string
		)
		if err := rows.Scan(&p.ID, &p.ApartmentID, &p.FromParticipantID, &p.ToParticipantID,
			&amount, &p.Currency, &paid, &p.Reason, &related, &createdAt); err != nil {
			return nil, err
		}

		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payment %s amount: %w", p.ID, err)
		}
		if p.Date, err = parseTime(paid); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if p.RelatedExpenseIDs, err = decodeStrings(related); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
