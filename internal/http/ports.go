package http

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/idempotency"
)

type Catalog interface {
	SearchJourneys(ctx context.Context, q domain.JourneyQuery) ([]domain.Journey, error)
	GetJourney(ctx context.Context, id string) (domain.Journey, error)
	SetSeatStatus(ctx context.Context, journeyID string, seatIDs []string, status domain.SeatStatus) error
}

type Sessions interface {
	Save(ctx context.Context, sess *domain.Session) error
	Load(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Bookings interface {
	CreateBooking(ctx context.Context, b domain.Booking, ev domain.Event) error
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	RecordPayment(ctx context.Context, outcome domain.PaymentOutcome, now time.Time) (domain.Booking, domain.Payment, error)
	CancelBooking(ctx context.Context, id uuid.UUID, now time.Time) (domain.Booking, error)
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error)
	ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Payment, error)
}

type Notifications interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Auditor interface {
	LogBooking(ctx context.Context, action string, b domain.Booking) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Limiter interface {
	Allow(ctx context.Context, key string, rate int, period time.Duration) (bool, error)
}

type IdempotencyStore interface {
	Get(ctx context.Context, scope, key string) (*idempotency.Response, error)
	Begin(ctx context.Context, scope, key string) (bool, error)
	Complete(ctx context.Context, scope, key string, resp idempotency.Response) error
	Abort(ctx context.Context, scope, key string) error
}
