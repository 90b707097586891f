package domain

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CancellationCutoff is the minimum lead time before departure during which a
// booking can still be cancelled.
const CancellationCutoff = 2 * time.Hour

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return st, nil
	}
	return "", errors.Wrapf(ErrUnknownBookingStatus, "%q", s)
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCancelled || next == BookingCompleted
	}
	return false
}

// CanCancel gates the cancel action: never for a cancelled booking, otherwise
// only while departure is at least CancellationCutoff away.
func CanCancel(departure, now time.Time, status BookingStatus) bool {
	if status == BookingCancelled {
		return false
	}
	return departure.Sub(now) >= CancellationCutoff
}

type BookedSeat struct {
	SeatID string          `json:"seat_id"`
	Number string          `json:"number"`
	Class  SeatClass       `json:"class"`
	Price  decimal.Decimal `json:"price"`
}

type Booking struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	SessionID     uuid.UUID       `json:"session_id"`
	JourneyID     string          `json:"journey_id"`
	Seats         []BookedSeat    `json:"seats"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	Status        BookingStatus   `json:"status"`
	DepartureTime time.Time       `json:"departure_time"`
	ArrivalTime   time.Time       `json:"arrival_time"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewBooking turns the session's current selection into a pending booking
// priced from the session quote.
func NewBooking(s *Session, now time.Time) (Booking, error) {
	selection := s.Selection.Selection()
	if len(selection) == 0 {
		return Booking{}, ErrEmptySelection
	}
	prices := s.Selection.Prices()
	seats := make([]BookedSeat, len(selection))
	for i, seat := range selection {
		seats[i] = BookedSeat{
			SeatID: seat.ID,
			Number: seat.Number,
			Class:  seat.Class,
			Price:  prices.Price(seat.Class),
		}
	}
	return Booking{
		ID:            uuid.New(),
		UserID:        s.UserID,
		SessionID:     s.ID,
		JourneyID:     s.JourneyID,
		Seats:         seats,
		TotalAmount:   s.Selection.Quote().Total,
		Currency:      s.Currency,
		Status:        BookingPending,
		DepartureTime: s.DepartureTime,
		ArrivalTime:   s.ArrivalTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (b *Booking) Transition(next BookingStatus, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", b.Status, next)
	}
	b.Status = next
	b.UpdatedAt = now
	return nil
}

// Cancel applies the cancellation gate and the state machine together.
func (b *Booking) Cancel(now time.Time) error {
	if !CanCancel(b.DepartureTime, now, b.Status) {
		return ErrCancellationClosed
	}
	return b.Transition(BookingCancelled, now)
}

func (b Booking) SeatIDs() []string {
	ids := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		ids[i] = s.SeatID
	}
	return ids
}
