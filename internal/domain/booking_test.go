package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
)

func TestCanCancel_Cutoff(t *testing.T) {
	now := time.Date(2024, 3, 25, 6, 0, 0, 0, time.UTC)

	assert.False(t, domain.CanCancel(now.Add(time.Hour+59*time.Minute), now, domain.BookingConfirmed))
	assert.True(t, domain.CanCancel(now.Add(2*time.Hour+time.Minute), now, domain.BookingConfirmed))
	assert.True(t, domain.CanCancel(now.Add(2*time.Hour), now, domain.BookingConfirmed))
	assert.False(t, domain.CanCancel(now.Add(-time.Hour), now, domain.BookingPending))
}

func TestCanCancel_AllStatuses(t *testing.T) {
	now := time.Now()
	statuses := []domain.BookingStatus{
		domain.BookingPending, domain.BookingConfirmed, domain.BookingCancelled, domain.BookingCompleted,
	}
	offsets := []time.Duration{
		-48 * time.Hour, -time.Minute, 0, time.Hour, domain.CancellationCutoff - time.Nanosecond,
		domain.CancellationCutoff, domain.CancellationCutoff + time.Nanosecond, 72 * time.Hour,
	}
	for _, st := range statuses {
		for _, off := range offsets {
			want := st != domain.BookingCancelled && off >= 2*time.Hour
			assert.Equal(t, want, domain.CanCancel(now.Add(off), now, st), "%s %s", st, off)
		}
	}
}

func TestBookingStatus_Transitions(t *testing.T) {
	allowed := map[domain.BookingStatus][]domain.BookingStatus{
		domain.BookingPending:   {domain.BookingConfirmed, domain.BookingCancelled},
		domain.BookingConfirmed: {domain.BookingCancelled, domain.BookingCompleted},
		domain.BookingCancelled: nil,
		domain.BookingCompleted: nil,
	}
	all := []domain.BookingStatus{
		domain.BookingPending, domain.BookingConfirmed, domain.BookingCancelled, domain.BookingCompleted,
	}
	for from, targets := range allowed {
		for _, to := range all {
			assert.Equal(t, contains(targets, to), from.CanTransitionTo(to), "%s -> %s", from, to)
		}
		assert.Equal(t, len(targets) == 0, from.Terminal(), from)
	}
}

func contains(list []domain.BookingStatus, s domain.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestNewBooking(t *testing.T) {
	now := time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC)
	journey := testJourney(t, now.Add(24*time.Hour))
	sess, err := domain.NewSession(uuid.New(), journey, now)
	require.NoError(t, err)

	_, err = domain.NewBooking(sess, now)
	assert.ErrorIs(t, err, domain.ErrEmptySelection)

	sess.Selection.Toggle("A1")
	sess.Selection.Toggle("A4")
	b, err := domain.NewBooking(sess, now)
	require.NoError(t, err)

	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, sess.ID, b.SessionID)
	assert.Equal(t, journey.ID, b.JourneyID)
	assert.Equal(t, []string{"A1", "A4"}, b.SeatIDs())
	assert.True(t, b.TotalAmount.Equal(decimal.NewFromInt(13000)))
	assert.True(t, b.Seats[0].Price.Equal(decimal.NewFromInt(8000)))
	assert.Equal(t, journey.DepartureTime, b.DepartureTime)
}

func TestBooking_Cancel(t *testing.T) {
	now := time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC)
	b := domain.Booking{Status: domain.BookingConfirmed, DepartureTime: now.Add(time.Hour)}
	assert.ErrorIs(t, b.Cancel(now), domain.ErrCancellationClosed)
	assert.Equal(t, domain.BookingConfirmed, b.Status)

	b.DepartureTime = now.Add(3 * time.Hour)
	require.NoError(t, b.Cancel(now))
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, now, b.UpdatedAt)

	assert.ErrorIs(t, b.Cancel(now), domain.ErrCancellationClosed)

	done := domain.Booking{Status: domain.BookingCompleted, DepartureTime: now.Add(5 * time.Hour)}
	assert.ErrorIs(t, done.Cancel(now), domain.ErrInvalidTransition)
}

func testJourney(t *testing.T, departure time.Time) domain.Journey {
	t.Helper()
	layout := domain.DefaultSeatLayout
	layout.BookedRatio = 0
	return domain.Journey{
		ID:            "express-101",
		Name:          "Express 101",
		From:          "Lagos",
		To:            "Abuja",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(6 * time.Hour),
		Currency:      "NGN",
		Prices:        classPrices(t),
		Seats:         domain.GenerateSeatMap(layout, nil),
	}
}
