package completion

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

type Store interface {
	ListCompletable(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error)
	CompleteBooking(ctx context.Context, id uuid.UUID, now time.Time) (domain.Booking, error)
	ListDepartingBetween(ctx context.Context, start, end time.Time, limit int) ([]domain.Booking, error)
}

// Notifications receives journey reminders. Inserting an ID that already
// exists must be a no-op.
type Notifications interface {
	Insert(ctx context.Context, n domain.Notification) error
}

type Auditor interface {
	LogBooking(ctx context.Context, action string, b domain.Booking) error
}

// Worker moves confirmed bookings to completed once the train has arrived
// and posts a reminder for confirmed bookings departing within ReminderLead.
type Worker struct {
	store      Store
	audit      Auditor
	notes      Notifications
	logger     observability.Logger
	BatchSize  int
	MaxRetries int
	Backoff    time.Duration
	now        func() time.Time
}

func NewWorker(store Store, audit Auditor, notes Notifications, logger observability.Logger) *Worker {
	return &Worker{
		store:      store,
		audit:      audit,
		notes:      notes,
		logger:     logger,
		BatchSize:  100,
		MaxRetries: 3,
		Backoff:    time.Second,
		now:        time.Now,
	}
}

func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	w.logger.WithField("interval", interval.String()).Info("completion worker started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.WithError(err).Error("failed to list completable bookings")
			}
			if _, err := w.SendReminders(ctx); err != nil {
				w.logger.WithError(err).Error("failed to list departing bookings")
			}
		}
	}
}

// RunOnce completes one batch and returns how many bookings changed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	now := w.now()
	bookings, err := w.store.ListCompletable(ctx, now, w.BatchSize)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, b := range bookings {
		completed, err := w.completeWithRetry(ctx, b.ID, now)
		if err != nil {
			w.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to complete booking after retries")
			continue
		}
		done++
		observability.BookingTransitions.WithLabelValues(string(domain.BookingCompleted)).Inc()
		if w.audit != nil {
			if err := w.audit.LogBooking(ctx, domain.EventBookingCompleted, completed); err != nil {
				w.logger.WithError(err).Warn("audit log failed")
			}
		}
	}
	return done, nil
}

// SendReminders posts a journey reminder for every confirmed booking
// departing within ReminderLead. Reminder IDs derive from the booking, so
// repeated sweeps leave one reminder per booking.
func (w *Worker) SendReminders(ctx context.Context) (int, error) {
	if w.notes == nil {
		return 0, nil
	}
	now := w.now()
	bookings, err := w.store.ListDepartingBetween(ctx, now, now.Add(domain.ReminderLead), w.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, b := range bookings {
		if err := w.notes.Insert(ctx, domain.ReminderFor(b, now)); err != nil {
			w.logger.WithError(err).WithField("booking_id", b.ID).Warn("failed to store reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

func (w *Worker) completeWithRetry(ctx context.Context, id uuid.UUID, now time.Time) (domain.Booking, error) {
	var err error
	for i := 0; i < w.MaxRetries; i++ {
		var b domain.Booking
		b, err = w.store.CompleteBooking(ctx, id, now)
		if err == nil {
			return b, nil
		}
		// Someone else moved or removed the booking; retrying cannot help.
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
			return domain.Booking{}, err
		}
		if i == w.MaxRetries-1 {
			break
		}
		backoff := time.Duration(1<<i) * w.Backoff
		select {
		case <-ctx.Done():
			return domain.Booking{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return domain.Booking{}, errors.Wrapf(err, "failed after %d retries", w.MaxRetries)
}
