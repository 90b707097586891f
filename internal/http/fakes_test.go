package http

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/idempotency"
)

type seatUpdate struct {
	JourneyID string
	SeatIDs   []string
	Status    domain.SeatStatus
}

type fakeCatalog struct {
	mu       sync.Mutex
	journeys map[string]domain.Journey
	updates  []seatUpdate
}

func (f *fakeCatalog) SearchJourneys(_ context.Context, q domain.JourneyQuery) ([]domain.Journey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Journey
	for _, j := range f.journeys {
		if q.Matches(j) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetJourney(_ context.Context, id string) (domain.Journey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.journeys[id]
	if !ok {
		return domain.Journey{}, errors.Wrapf(domain.ErrNotFound, "journey %s", id)
	}
	return j, nil
}

func (f *fakeCatalog) SetSeatStatus(_ context.Context, journeyID string, seatIDs []string, status domain.SeatStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, seatUpdate{JourneyID: journeyID, SeatIDs: seatIDs, Status: status})
	j, ok := f.journeys[journeyID]
	if !ok {
		return nil
	}
	seats := make([]domain.Seat, len(j.Seats))
	copy(seats, j.Seats)
	for i := range seats {
		for _, id := range seatIDs {
			if seats[i].ID == id {
				seats[i].Status = status
			}
		}
	}
	j.Seats = seats
	f.journeys[journeyID] = j
	return nil
}

type fakeSessions struct {
	mu    sync.Mutex
	snaps map[uuid.UUID]domain.SessionSnapshot
	// beforeSave runs once ahead of the next Save, standing in for a
	// concurrent request.
	beforeSave func(id uuid.UUID)
}

func (f *fakeSessions) Save(_ context.Context, sess *domain.Session) error {
	f.mu.Lock()
	hook := f.beforeSave
	f.beforeSave = nil
	f.mu.Unlock()
	if hook != nil {
		hook(sess.ID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snaps[sess.ID].Version != sess.Version {
		return errors.Wrapf(domain.ErrConflict, "session %s was changed by another request", sess.ID)
	}
	snap := sess.Snapshot()
	snap.Version = sess.Version + 1
	f.snaps[sess.ID] = snap
	sess.Version = snap.Version
	return nil
}

func (f *fakeSessions) Load(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "session %s", id)
	}
	return domain.RestoreSession(snap)
}

func (f *fakeSessions) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snaps, id)
	return nil
}

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]domain.Booking
	payments []domain.Payment
	events   []domain.Event
}

func (f *fakeBookings) CreateBooking(_ context.Context, b domain.Booking, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.bookings {
		if existing.SessionID == b.SessionID {
			return errors.Wrap(domain.ErrConflict, "session already checked out")
		}
	}
	f.bookings[b.ID] = b
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeBookings) GetBooking(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	return b, nil
}

func (f *fakeBookings) ListBookingsByUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Booking{}
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) RecordPayment(_ context.Context, outcome domain.PaymentOutcome, now time.Time) (domain.Booking, domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[outcome.BookingID]
	if !ok {
		return domain.Booking{}, domain.Payment{}, domain.ErrNotFound
	}
	if b.Status != domain.BookingPending {
		return domain.Booking{}, domain.Payment{}, domain.ErrInvalidTransition
	}
	p := domain.NewPayment(b, outcome, now)
	eventType := domain.EventPaymentFailed
	if outcome.Succeeded {
		if err := b.Transition(domain.BookingConfirmed, now); err != nil {
			return domain.Booking{}, domain.Payment{}, err
		}
		eventType = domain.EventBookingConfirmed
	}
	ev, err := domain.NewBookingEvent(eventType, b, now)
	if err != nil {
		return domain.Booking{}, domain.Payment{}, err
	}
	f.bookings[b.ID] = b
	f.payments = append(f.payments, p)
	f.events = append(f.events, ev)
	return b, p, nil
}

func (f *fakeBookings) CancelBooking(_ context.Context, id uuid.UUID, now time.Time) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err := b.Cancel(now); err != nil {
		return domain.Booking{}, err
	}
	f.bookings[id] = b
	return b, nil
}

func (f *fakeBookings) ListPaymentsByUser(_ context.Context, userID uuid.UUID) ([]domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeBookings) ListPaymentsByBooking(_ context.Context, bookingID uuid.UUID) ([]domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID uuid.UUID, limit int64) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Notification{}
	for _, n := range f.items {
		if n.UserID == userID && int64(len(out)) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) UnreadCount(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, item := range f.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.items {
		if f.items[i].UserID == userID && !f.items[i].IsRead {
			f.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

type fakeLimiter struct {
	mu   sync.Mutex
	deny bool
	keys []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return !f.deny, nil
}

type fakeIdempotency struct {
	mu        sync.Mutex
	responses map[string]idempotency.Response
	inFlight  map[string]bool
}

func (f *fakeIdempotency) Get(_ context.Context, scope, key string) (*idempotency.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[scope+key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeIdempotency) Begin(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight[scope+key] {
		return false, nil
	}
	f.inFlight[scope+key] = true
	return true, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, scope, key string, resp idempotency.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[scope+key] = resp
	delete(f.inFlight, scope+key)
	return nil
}

func (f *fakeIdempotency) Abort(_ context.Context, scope, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, scope+key)
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func testJourney(id string, departure time.Time) domain.Journey {
	prices, err := domain.NewPriceTable(decimal.NewFromInt(5000), map[domain.SeatClass]decimal.Decimal{
		domain.ClassFirst:   decimal.NewFromInt(8000),
		domain.ClassEconomy: decimal.NewFromInt(5000),
	})
	if err != nil {
		panic(err)
	}
	layout := domain.DefaultSeatLayout
	layout.BookedRatio = 0
	seats := domain.GenerateSeatMap(layout, nil)
	seats[1].Status = domain.SeatBooked
	return domain.Journey{
		ID:            id,
		Name:          "Express " + id,
		From:          "Lagos",
		To:            "Abuja",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(6 * time.Hour),
		Currency:      "NGN",
		Prices:        prices,
		Seats:         seats,
	}
}
