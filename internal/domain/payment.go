package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentPending   PaymentStatus = "pending"
)

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentPaystack PaymentMethod = "paystack"
)

// ParsePaymentMethod defaults to card for anything the provider did not name.
func ParsePaymentMethod(s string) PaymentMethod {
	if PaymentMethod(strings.ToLower(strings.TrimSpace(s))) == PaymentPaystack {
		return PaymentPaystack
	}
	return PaymentCard
}

type Payment struct {
	ID        uuid.UUID       `json:"id"`
	BookingID uuid.UUID       `json:"booking_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    PaymentStatus   `json:"status"`
	Method    PaymentMethod   `json:"method"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentOutcome is what the payment provider reports for a booking.
type PaymentOutcome struct {
	BookingID uuid.UUID
	Succeeded bool
	Method    PaymentMethod
	Reference string
}

func NewPayment(b Booking, outcome PaymentOutcome, now time.Time) Payment {
	status := PaymentFailed
	if outcome.Succeeded {
		status = PaymentCompleted
	}
	return Payment{
		ID:        uuid.New(),
		BookingID: b.ID,
		UserID:    b.UserID,
		Amount:    b.TotalAmount,
		Currency:  b.Currency,
		Status:    status,
		Method:    outcome.Method,
		Reference: outcome.Reference,
		CreatedAt: now,
	}
}
