package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventPaymentFailed    = "payment.failed"
)

type BookingEvent struct {
	BookingID     uuid.UUID       `json:"booking_id"`
	UserID        uuid.UUID       `json:"user_id"`
	JourneyID     string          `json:"journey_id"`
	Status        BookingStatus   `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	DepartureTime time.Time       `json:"departure_time"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Event is an outbox entry waiting to be published.
type Event struct {
	ID          uuid.UUID
	Type        string
	AggregateID uuid.UUID
	Payload     []byte
}

func NewBookingEvent(eventType string, b Booking, now time.Time) (Event, error) {
	payload, err := json.Marshal(BookingEvent{
		BookingID:     b.ID,
		UserID:        b.UserID,
		JourneyID:     b.JourneyID,
		Status:        b.Status,
		TotalAmount:   b.TotalAmount,
		Currency:      b.Currency,
		DepartureTime: b.DepartureTime,
		OccurredAt:    now,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: b.ID,
		Payload:     payload,
	}, nil
}
