package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
)

func insertPayment(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payments (id, booking_id, user_id, amount, currency, status, method, reference, created_at)
		VALUES ($1, $2, $3, $4::DECIMAL, $5, $6, $7, $8, $9)
	`, p.ID, p.BookingID, p.UserID, p.Amount.String(), p.Currency, string(p.Status), string(p.Method), p.Reference, p.CreatedAt)
	return err
}

func (r *Repository) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error) {
	return r.queryPayments(ctx, `WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Payment, error) {
	return r.queryPayments(ctx, `WHERE booking_id = $1 ORDER BY created_at DESC`, bookingID)
}

func (r *Repository) queryPayments(ctx context.Context, where string, args ...any) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, user_id, amount::STRING, currency, status, method, reference, created_at
		FROM payments `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		var (
			p                      domain.Payment
			amount, status, method string
		)
		err := rows.Scan(&p.ID, &p.BookingID, &p.UserID, &amount, &p.Currency, &status, &method, &p.Reference, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Wrapf(err, "payment %s amount", p.ID)
		}
		p.Status = domain.PaymentStatus(status)
		p.Method = domain.ParsePaymentMethod(method)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
