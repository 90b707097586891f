package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

type fakeStore struct {
	due       []domain.Booking
	departing []domain.Booking
	window    [2]time.Time
	failures  map[uuid.UUID]int
	permanent map[uuid.UUID]error
	calls     map[uuid.UUID]int
	completed []uuid.UUID
}

func newFakeStore(due ...domain.Booking) *fakeStore {
	return &fakeStore{
		due:       due,
		failures:  map[uuid.UUID]int{},
		permanent: map[uuid.UUID]error{},
		calls:     map[uuid.UUID]int{},
	}
}

func (f *fakeStore) ListCompletable(_ context.Context, _ time.Time, limit int) ([]domain.Booking, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeStore) CompleteBooking(_ context.Context, id uuid.UUID, now time.Time) (domain.Booking, error) {
	f.calls[id]++
	if err := f.permanent[id]; err != nil {
		return domain.Booking{}, err
	}
	if f.failures[id] > 0 {
		f.failures[id]--
		return domain.Booking{}, domain.ErrSerializationFailure
	}
	f.completed = append(f.completed, id)
	return domain.Booking{ID: id, Status: domain.BookingCompleted, UpdatedAt: now}, nil
}

func (f *fakeStore) ListDepartingBetween(_ context.Context, start, end time.Time, limit int) ([]domain.Booking, error) {
	f.window = [2]time.Time{start, end}
	if len(f.departing) > limit {
		return f.departing[:limit], nil
	}
	return f.departing, nil
}

type fakeNotes struct {
	byID    map[uuid.UUID]domain.Notification
	failFor uuid.UUID
	inserts int
}

func (f *fakeNotes) Insert(_ context.Context, n domain.Notification) error {
	f.inserts++
	if n.UserID == f.failFor {
		return errors.New("mongo unavailable")
	}
	if _, ok := f.byID[n.ID]; !ok {
		f.byID[n.ID] = n
	}
	return nil
}

type fakeAudit struct{ actions []string }

func (f *fakeAudit) LogBooking(_ context.Context, action string, _ domain.Booking) error {
	f.actions = append(f.actions, action)
	return nil
}

func confirmed() domain.Booking {
	return domain.Booking{ID: uuid.New(), Status: domain.BookingConfirmed}
}

func TestWorker_RunOnce(t *testing.T) {
	a, b, c := confirmed(), confirmed(), confirmed()
	store := newFakeStore(a, b, c)
	store.failures[b.ID] = 2
	store.permanent[c.ID] = domain.ErrInvalidTransition
	audit := &fakeAudit{}

	w := NewWorker(store, audit, nil, observability.NewNopLogger())
	w.Backoff = time.Millisecond

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, store.completed)
	assert.Equal(t, 3, store.calls[b.ID])
	assert.Equal(t, 1, store.calls[c.ID], "permanent errors are not retried")
	assert.Equal(t, []string{domain.EventBookingCompleted, domain.EventBookingCompleted}, audit.actions)
}

func TestWorker_GivesUpAfterMaxRetries(t *testing.T) {
	a := confirmed()
	store := newFakeStore(a)
	store.failures[a.ID] = 10

	w := NewWorker(store, nil, nil, observability.NewNopLogger())
	w.Backoff = time.Millisecond

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, w.MaxRetries, store.calls[a.ID])
}

func TestWorker_CancelledContext(t *testing.T) {
	a := confirmed()
	store := newFakeStore(a)
	store.failures[a.ID] = 10

	w := NewWorker(store, nil, nil, observability.NewNopLogger())
	w.Backoff = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.completeWithRetry(ctx, a.ID, time.Now())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWorker_NoSleepAfterLastAttempt(t *testing.T) {
	a := confirmed()
	store := newFakeStore(a)
	store.failures[a.ID] = 10

	w := NewWorker(store, nil, nil, observability.NewNopLogger())
	w.MaxRetries = 1
	w.Backoff = time.Hour

	start := time.Now()
	_, err := w.completeWithRetry(context.Background(), a.ID, start)
	assert.True(t, errors.Is(err, domain.ErrSerializationFailure))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, store.calls[a.ID])
}

func TestWorker_SendReminders(t *testing.T) {
	now := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	user := uuid.New()
	tomorrow := domain.Booking{ID: uuid.New(), UserID: user, Status: domain.BookingConfirmed, JourneyID: "express-101", DepartureTime: now.Add(20 * time.Hour)}
	tonight := domain.Booking{ID: uuid.New(), UserID: user, Status: domain.BookingConfirmed, JourneyID: "dawn-7", DepartureTime: now.Add(3 * time.Hour)}
	store := newFakeStore()
	store.departing = []domain.Booking{tonight, tomorrow}
	notes := &fakeNotes{byID: map[uuid.UUID]domain.Notification{}}

	w := NewWorker(store, nil, notes, observability.NewNopLogger())
	w.now = func() time.Time { return now }

	n, err := w.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, [2]time.Time{now, now.Add(domain.ReminderLead)}, store.window)

	w.now = func() time.Time { return now.Add(time.Minute) }
	_, err = w.SendReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, notes.inserts)
	require.Len(t, notes.byID, 2, "a second sweep must not add reminders")
	reminder := notes.byID[domain.ReminderFor(tomorrow, now).ID]
	assert.Equal(t, domain.NotificationReminder, reminder.Type)
	assert.Equal(t, user, reminder.UserID)
}

func TestWorker_SendRemindersSkipsFailures(t *testing.T) {
	now := time.Now()
	broken := domain.Booking{ID: uuid.New(), UserID: uuid.New(), Status: domain.BookingConfirmed, DepartureTime: now.Add(time.Hour)}
	fine := domain.Booking{ID: uuid.New(), UserID: uuid.New(), Status: domain.BookingConfirmed, DepartureTime: now.Add(2 * time.Hour)}
	store := newFakeStore()
	store.departing = []domain.Booking{broken, fine}
	notes := &fakeNotes{byID: map[uuid.UUID]domain.Notification{}, failFor: broken.UserID}

	n, err := NewWorker(store, nil, notes, observability.NewNopLogger()).SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, notes.byID, domain.ReminderFor(fine, now).ID)
}

func TestWorker_SendRemindersWithoutFeed(t *testing.T) {
	store := newFakeStore()
	store.departing = []domain.Booking{confirmed()}

	n, err := NewWorker(store, nil, nil, observability.NewNopLogger()).SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
