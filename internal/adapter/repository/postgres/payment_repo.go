package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/aptledger/internal/domain"
)

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	db DBTX
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, apartment_id, from_participant_id, to_participant_id, amount, currency,
			paid_at, reason, related_expense_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	related := payment.RelatedExpenseIDs
	if related == nil {
		related = []string{}
	}

	_, err := conn(ctx, r.db).Exec(ctx, query,
		payment.ID,
		payment.ApartmentID,
		payment.FromParticipantID,
		payment.ToParticipantID,
		decimalToNumeric(payment.Amount),
		payment.Currency,
		timeToPgTimestamptz(payment.Date),
		payment.Reason,
		related,
		timeToPgTimestamptz(payment.CreatedAt),
	)
	if hasCode(err, pgErrForeignKeyViolation) {
		return domain.ErrApartmentNotFound
	}

	return err
}

// ListByApartment lists payments newest first.
func (r *PaymentRepository) ListByApartment(ctx context.Context, apartmentID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, apartment_id, from_participant_id, to_participant_id, amount, currency,
			paid_at, reason, related_expense_ids, created_at
		FROM payments
		WHERE apartment_id = $1
		ORDER BY paid_at DESC, created_at DESC
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var (
			p       domain.Payment
			amount  pgtype.Numeric
			paidAt  pgtype.Timestamptz
			created pgtype.Timestamptz
		)
		if err := rows.Scan(
			&p.ID,
			&p.ApartmentID,
			&p.FromParticipantID,
			&p.ToParticipantID,
			&amount,
			&p.Currency,
			&paidAt,
			&p.Reason,
			&p.RelatedExpenseIDs,
			&created,
		); err != nil {
			return nil, err
		}

		p.Amount = numericToDecimal(amount)
		p.Date = paidAt.Time
		p.CreatedAt = created.Time
		if len(p.RelatedExpenseIDs) == 0 {
			p.RelatedExpenseIDs = nil
		}
		payments = append(payments, &p)
	}

	return payments, rows.Err()
}
