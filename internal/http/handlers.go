package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type Deps struct {
	Catalog       Catalog
	Sessions      Sessions
	Bookings      Bookings
	Notifications Notifications
	Audit         Auditor
	Readiness     map[string]Pinger
	Logger        observability.Logger
}

type Handlers struct {
	catalog       Catalog
	sessions      Sessions
	bookings      Bookings
	notifications Notifications
	audit         Auditor
	readiness     map[string]Pinger
	logger        observability.Logger
	now           func() time.Time
}

func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		catalog:       deps.Catalog,
		sessions:      deps.Sessions,
		bookings:      deps.Bookings,
		notifications: deps.Notifications,
		audit:         deps.Audit,
		readiness:     deps.Readiness,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

func (h *Handlers) log(r *http.Request) observability.Logger {
	return loggerFrom(r.Context(), h.logger)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// respondError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	case errors.Is(err, domain.ErrCancellationClosed):
		http.Error(w, "booking can no longer be cancelled", http.StatusConflict)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrEmptySelection):
		http.Error(w, "select at least one seat", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnknownSeatClass),
		errors.Is(err, domain.ErrUnknownSeatStatus),
		errors.Is(err, domain.ErrUnknownBookingStatus),
		errors.Is(err, domain.ErrUnknownCurrency),
		errors.Is(err, domain.ErrNegativePrice),
		errors.Is(err, domain.ErrUnpricedSeatClass),
		errors.Is(err, domain.ErrDuplicateSeat):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log(r).WithError(err).Error("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) SearchJourneys(w http.ResponseWriter, r *http.Request) {
	q := domain.JourneyQuery{
		From: strings.TrimSpace(r.URL.Query().Get("from")),
		To:   strings.TrimSpace(r.URL.Query().Get("to")),
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		q.Date = date
	}

	journeys, err := h.catalog.SearchJourneys(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	summaries := make([]journeySummary, len(journeys))
	for i, j := range journeys {
		summaries[i] = newJourneySummary(j)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"journeys": summaries})
}

func (h *Handlers) GetJourney(w http.ResponseWriter, r *http.Request) {
	j, err := h.catalog.GetJourney(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"journey":         j,
		"available_seats": j.AvailableSeats(),
	})
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JourneyID string    `json:"journey_id"`
		UserID    uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.JourneyID == "" || req.UserID == uuid.Nil {
		http.Error(w, "journey_id and user_id are required", http.StatusBadRequest)
		return
	}

	journey, err := h.catalog.GetJourney(r.Context(), req.JourneyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	sess, err := domain.NewSession(req.UserID, journey, h.now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.respondError(w, r, err)
		return
	}
	observability.SessionsOpened.Inc()
	writeJSON(w, http.StatusCreated, newSessionView(sess))
}

func (h *Handlers) loadSession(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return nil, false
	}
	sess, err := h.sessions.Load(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	log := h.log(r).WithField("session_id", sess.ID)
	sess.Selection.OnChange(func(q domain.Quote) {
		log.WithField("seat_count", q.SeatCount).WithField("total", q.Total.String()).Debug("quote updated")
	})
	return sess, true
}

// syncBooked marks seats the catalog already reports as booked so the session
// cannot select or check out seats sold to someone else. It returns how many
// seats changed.
func (h *Handlers) syncBooked(ctx context.Context, sess *domain.Session) (int, error) {
	journey, err := h.catalog.GetJourney(ctx, sess.JourneyID)
	if err != nil {
		return 0, err
	}
	var booked []string
	for _, seat := range journey.Seats {
		if !seat.IsAvailable() {
			booked = append(booked, seat.ID)
		}
	}
	return sess.Selection.MarkBooked(booked...), nil
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (h *Handlers) ToggleSeat(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	synced, err := h.syncBooked(r.Context(), sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	seatID := chi.URLParam(r, "seatID")
	wasSelected := sess.Selection.IsSelected(seatID)

	if !sess.Selection.Toggle(seatID) {
		observability.SeatToggles.WithLabelValues("ignored").Inc()
		h.log(r).WithField("session_id", sess.ID).WithField("seat_id", seatID).Debug("toggle ignored for unknown or booked seat")
		if synced > 0 {
			if err := h.sessions.Save(r.Context(), sess); err != nil {
				h.respondError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, newSessionView(sess))
		return
	}
	if wasSelected {
		observability.SeatToggles.WithLabelValues("deselected").Inc()
	} else {
		observability.SeatToggles.WithLabelValues("selected").Inc()
	}
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (h *Handlers) ClearSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	sess.Selection.Clear()
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout turns the session's selection into a pending booking. The session
// stays alive until payment succeeds so a failed payment can be retried.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	picked := len(sess.Selection.Selection())
	if _, err := h.syncBooked(r.Context(), sess); err != nil {
		h.respondError(w, r, err)
		return
	}
	if lost := picked - len(sess.Selection.Selection()); lost > 0 {
		if err := h.sessions.Save(r.Context(), sess); err != nil {
			h.respondError(w, r, err)
			return
		}
		h.respondError(w, r, errors.Wrapf(domain.ErrConflict, "%d selected seat(s) were booked by another passenger", lost))
		return
	}

	now := h.now()
	booking, err := domain.NewBooking(sess, now)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ev, err := domain.NewBookingEvent(domain.EventBookingCreated, booking, now)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.bookings.CreateBooking(r.Context(), booking, ev); err != nil {
		h.respondError(w, r, err)
		return
	}

	observability.BookingTransitions.WithLabelValues(string(booking.Status)).Inc()
	observability.QuoteTotal.Observe(booking.TotalAmount.InexactFloat64())
	h.auditBooking(r, domain.EventBookingCreated, booking)
	writeJSON(w, http.StatusCreated, newBookingView(booking, now, nil))
}

func (h *Handlers) auditBooking(r *http.Request, action string, b domain.Booking) {
	if h.audit == nil {
		return
	}
	if err := h.audit.LogBooking(r.Context(), action, b); err != nil {
		h.log(r).WithError(err).WithField("booking_id", b.ID).Warn("audit log failed")
	}
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var (
		booking  domain.Booking
		payments []domain.Payment
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		booking, err = h.bookings.GetBooking(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = h.bookings.ListPaymentsByBooking(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(booking, h.now(), payments))
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	current, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	now := h.now()
	cancelled, err := h.bookings.CancelBooking(r.Context(), id, now)
	if errors.Is(err, domain.ErrCancellationClosed) || errors.Is(err, domain.ErrInvalidTransition) {
		observability.CancellationsRejected.Inc()
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	observability.BookingTransitions.WithLabelValues(string(cancelled.Status)).Inc()

	// Only a confirmed booking ever flipped its seats in the catalog.
	if current.Status == domain.BookingConfirmed {
		if err := h.catalog.SetSeatStatus(r.Context(), cancelled.JourneyID, cancelled.SeatIDs(), domain.SeatAvailable); err != nil {
			h.log(r).WithError(err).WithField("booking_id", id).Error("failed to release seats")
		}
	}
	h.auditBooking(r, domain.EventBookingCancelled, cancelled)
	writeJSON(w, http.StatusOK, newBookingView(cancelled, now, nil))
}

func (h *Handlers) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	bookings, err := h.bookings.ListBookingsByUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	now := h.now()
	views := make([]bookingView, len(bookings))
	for i, b := range bookings {
		views[i] = newBookingView(b, now, nil)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": views})
}

func (h *Handlers) ListUserPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	payments, err := h.bookings.ListPaymentsByUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	limit := int64(defaultNotificationLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	var (
		items  []domain.Notification
		unread int64
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = h.notifications.ListByUser(gctx, userID, limit)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = h.notifications.UnreadCount(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": items,
		"unread_count":  unread,
	})
}

func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": n})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PaymentCallback receives the provider's verdict for a pending booking.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID uuid.UUID `json:"booking_id"`
		Status    string    `json:"status"`
		Reference string    `json:"reference"`
		Method    string    `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.BookingID == uuid.Nil {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	outcome := domain.PaymentOutcome{
		BookingID: req.BookingID,
		Succeeded: strings.EqualFold(req.Status, "SUCCEEDED"),
		Method:    domain.ParsePaymentMethod(req.Method),
		Reference: req.Reference,
	}
	booking, payment, err := h.bookings.RecordPayment(r.Context(), outcome, h.now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	log := h.log(r).WithField("booking_id", booking.ID)
	if outcome.Succeeded {
		observability.BookingTransitions.WithLabelValues(string(booking.Status)).Inc()
		if err := h.catalog.SetSeatStatus(r.Context(), booking.JourneyID, booking.SeatIDs(), domain.SeatBooked); err != nil {
			log.WithError(err).Error("failed to mark seats booked")
		}
		if err := h.sessions.Delete(r.Context(), booking.SessionID); err != nil {
			log.WithError(err).Warn("failed to clear session")
		}
		h.auditBooking(r, domain.EventBookingConfirmed, booking)
	} else {
		log.WithField("reference", req.Reference).Info("payment failed, booking stays pending")
		h.auditBooking(r, domain.EventPaymentFailed, booking)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"booking_id":     booking.ID,
		"status":         booking.Status,
		"payment_id":     payment.ID,
		"payment_status": payment.Status,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz pings every dependency and reports the ones that failed.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, p := range h.readiness {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "failed": failed})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
