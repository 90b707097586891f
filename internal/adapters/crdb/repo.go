package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return mapPgError(err)
	}
	return mapPgError(tx.Commit(ctx))
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case SerializationFailureCode:
			return errors.Wrap(domain.ErrSerializationFailure, pgErr.Message)
		case UniqueViolationCode:
			return errors.Wrap(domain.ErrConflict, pgErr.Message)
		}
	}
	return err
}

// CreateBooking stores a pending booking with its seats and queues ev in the
// same transaction.
func (r *Repository) CreateBooking(ctx context.Context, b domain.Booking, ev domain.Event) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO bookings (id, user_id, session_id, journey_id, total_amount, currency, status,
				departure_time, arrival_time, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5::DECIMAL, $6, $7, $8, $9, $10, $11)
		`, b.ID, b.UserID, b.SessionID, b.JourneyID, b.TotalAmount.String(), b.Currency, string(b.Status),
			b.DepartureTime, b.ArrivalTime, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return err
		}
		for i, seat := range b.Seats {
			_, err := tx.Exec(ctx, `
				INSERT INTO booking_seats (booking_id, position, seat_id, number, class, price)
				VALUES ($1, $2, $3, $4, $5, $6::DECIMAL)
			`, b.ID, i, seat.SeatID, seat.Number, string(seat.Class), seat.Price.String())
			if err != nil {
				return err
			}
		}
		return r.InsertOutbox(ctx, tx, recordFromEvent(ev))
	})
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, err := getBooking(ctx, r.pool, id, false)
	if err != nil {
		return domain.Booking{}, err
	}
	seats, err := loadSeats(ctx, r.pool, `WHERE booking_id = $1`, id)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Seats = seats[b.ID]
	return b, nil
}

func (r *Repository) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	bookings, err := queryBookings(ctx, r.pool, `WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	seats, err := loadSeats(ctx, r.pool, `WHERE booking_id IN (SELECT id FROM bookings WHERE user_id = $1)`, userID)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].Seats = seats[bookings[i].ID]
	}
	return bookings, nil
}

// ListCompletable returns confirmed bookings whose arrival time is not after
// now, oldest arrival first. Seats are not loaded.
func (r *Repository) ListCompletable(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	return queryBookings(ctx, r.pool, `WHERE status = 'confirmed' AND arrival_time <= $1 ORDER BY arrival_time ASC LIMIT $2`, now, limit)
}

// ListDepartingBetween returns confirmed bookings departing in [start, end),
// soonest first, with their seats.
func (r *Repository) ListDepartingBetween(ctx context.Context, start, end time.Time, limit int) ([]domain.Booking, error) {
	const where = `WHERE status = 'confirmed' AND departure_time >= $1 AND departure_time < $2`
	bookings, err := queryBookings(ctx, r.pool, where+` ORDER BY departure_time ASC LIMIT $3`, start, end, limit)
	if err != nil || len(bookings) == 0 {
		return bookings, err
	}
	seats, err := loadSeats(ctx, r.pool, `WHERE booking_id IN (SELECT id FROM bookings `+where+`)`, start, end)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].Seats = seats[bookings[i].ID]
	}
	return bookings, nil
}

// RecordPayment applies a provider outcome to a pending booking. Success
// confirms the booking; failure leaves it pending. Either way a payment row
// and an event are written.
func (r *Repository) RecordPayment(ctx context.Context, outcome domain.PaymentOutcome, now time.Time) (domain.Booking, domain.Payment, error) {
	var (
		booking domain.Booking
		payment domain.Payment
	)
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		b, err := getBooking(ctx, tx, outcome.BookingID, true)
		if err != nil {
			return err
		}
		if b.Status != domain.BookingPending {
			return errors.Wrapf(domain.ErrInvalidTransition, "booking %s is %s", b.ID, b.Status)
		}
		payment = domain.NewPayment(b, outcome, now)
		eventType := domain.EventPaymentFailed
		if outcome.Succeeded {
			if err := b.Transition(domain.BookingConfirmed, now); err != nil {
				return err
			}
			if err := updateStatus(ctx, tx, b); err != nil {
				return err
			}
			eventType = domain.EventBookingConfirmed
		}
		if err := insertPayment(ctx, tx, payment); err != nil {
			return err
		}
		ev, err := domain.NewBookingEvent(eventType, b, now)
		if err != nil {
			return err
		}
		booking = b
		return r.InsertOutbox(ctx, tx, recordFromEvent(ev))
	})
	if err != nil {
		return domain.Booking{}, domain.Payment{}, err
	}
	seats, err := loadSeats(ctx, r.pool, `WHERE booking_id = $1`, booking.ID)
	if err != nil {
		return domain.Booking{}, domain.Payment{}, err
	}
	booking.Seats = seats[booking.ID]
	return booking, payment, nil
}

// CancelBooking enforces the cancellation window and the state machine.
func (r *Repository) CancelBooking(ctx context.Context, id uuid.UUID, now time.Time) (domain.Booking, error) {
	return r.transition(ctx, id, domain.EventBookingCancelled, func(b *domain.Booking) error {
		return b.Cancel(now)
	}, now)
}

func (r *Repository) CompleteBooking(ctx context.Context, id uuid.UUID, now time.Time) (domain.Booking, error) {
	return r.transition(ctx, id, domain.EventBookingCompleted, func(b *domain.Booking) error {
		return b.Transition(domain.BookingCompleted, now)
	}, now)
}

func (r *Repository) transition(ctx context.Context, id uuid.UUID, eventType string, apply func(*domain.Booking) error, now time.Time) (domain.Booking, error) {
	var booking domain.Booking
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		b, err := getBooking(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := apply(&b); err != nil {
			return err
		}
		if err := updateStatus(ctx, tx, b); err != nil {
			return err
		}
		ev, err := domain.NewBookingEvent(eventType, b, now)
		if err != nil {
			return err
		}
		booking = b
		return r.InsertOutbox(ctx, tx, recordFromEvent(ev))
	})
	if err != nil {
		return domain.Booking{}, err
	}
	seats, err := loadSeats(ctx, r.pool, `WHERE booking_id = $1`, id)
	if err != nil {
		return domain.Booking{}, err
	}
	booking.Seats = seats[id]
	return booking, nil
}

func updateStatus(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	result, err := tx.Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1
	`, b.ID, string(b.Status), b.UpdatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const bookingColumns = `id, user_id, session_id, journey_id, total_amount::STRING, currency, status,
	departure_time, arrival_time, created_at, updated_at`

func getBooking(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (domain.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	return b, err
}

func queryBookings(ctx context.Context, q querier, where string, args ...any) ([]domain.Booking, error) {
	rows, err := q.Query(ctx, `SELECT `+bookingColumns+` FROM bookings `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b      domain.Booking
		total  string
		status string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.SessionID, &b.JourneyID, &total, &b.Currency, &status,
		&b.DepartureTime, &b.ArrivalTime, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return domain.Booking{}, errors.Wrapf(err, "booking %s total", b.ID)
	}
	if b.Status, err = domain.ParseBookingStatus(status); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func loadSeats(ctx context.Context, q querier, where string, args ...any) (map[uuid.UUID][]domain.BookedSeat, error) {
	rows, err := q.Query(ctx, `
		SELECT booking_id, seat_id, number, class, price::STRING
		FROM booking_seats `+where+` ORDER BY booking_id, position
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make(map[uuid.UUID][]domain.BookedSeat)
	for rows.Next() {
		var (
			bookingID    uuid.UUID
			seat         domain.BookedSeat
			class, price string
		)
		if err := rows.Scan(&bookingID, &seat.SeatID, &seat.Number, &class, &price); err != nil {
			return nil, err
		}
		if seat.Class, err = domain.ParseSeatClass(class); err != nil {
			return nil, err
		}
		if seat.Price, err = decimal.NewFromString(price); err != nil {
			return nil, errors.Wrapf(err, "seat %s price", seat.SeatID)
		}
		seats[bookingID] = append(seats[bookingID], seat)
	}
	return seats, rows.Err()
}
