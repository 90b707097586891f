package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
)

type seatView struct {
	domain.Seat
	Selected bool `json:"selected"`
}

type quoteView struct {
	domain.Quote
	Formatted string `json:"formatted"`
}

type sessionView struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	JourneyID     string        `json:"journey_id"`
	DepartureTime time.Time     `json:"departure_time"`
	ArrivalTime   time.Time     `json:"arrival_time"`
	Seats         []seatView    `json:"seats"`
	Selection     []domain.Seat `json:"selection"`
	Quote         quoteView     `json:"quote"`
}

type journeySummary struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	From           string            `json:"from"`
	To             string            `json:"to"`
	DepartureTime  time.Time         `json:"departure_time"`
	ArrivalTime    time.Time         `json:"arrival_time"`
	Currency       string            `json:"currency"`
	Prices         domain.PriceTable `json:"prices"`
	AvailableSeats int               `json:"available_seats"`
}

type bookingView struct {
	domain.Booking
	FormattedTotal string           `json:"formatted_total"`
	CanCancel      bool             `json:"can_cancel"`
	Payments       []domain.Payment `json:"payments,omitempty"`
}

func formatted(amount decimal.Decimal, currency string) string {
	s, err := domain.FormatAmount(amount, currency)
	if err != nil {
		return amount.String() + " " + currency
	}
	return s
}

func newQuoteView(q domain.Quote) quoteView {
	return quoteView{Quote: q, Formatted: formatted(q.Total, q.Currency)}
}

func newSessionView(s *domain.Session) sessionView {
	inventory := s.Selection.Seats()
	seats := make([]seatView, len(inventory))
	for i, seat := range inventory {
		seats[i] = seatView{Seat: seat, Selected: s.Selection.IsSelected(seat.ID)}
	}
	return sessionView{
		ID:            s.ID,
		UserID:        s.UserID,
		JourneyID:     s.JourneyID,
		DepartureTime: s.DepartureTime,
		ArrivalTime:   s.ArrivalTime,
		Seats:         seats,
		Selection:     s.Selection.Selection(),
		Quote:         newQuoteView(s.Selection.Quote()),
	}
}

func newJourneySummary(j domain.Journey) journeySummary {
	return journeySummary{
		ID:             j.ID,
		Name:           j.Name,
		From:           j.From,
		To:             j.To,
		DepartureTime:  j.DepartureTime,
		ArrivalTime:    j.ArrivalTime,
		Currency:       j.Currency,
		Prices:         j.Prices,
		AvailableSeats: j.AvailableSeats(),
	}
}

func newBookingView(b domain.Booking, now time.Time, payments []domain.Payment) bookingView {
	return bookingView{
		Booking:        b,
		FormattedTotal: formatted(b.TotalAmount, b.Currency),
		CanCancel:      domain.CanCancel(b.DepartureTime, now, b.Status) && b.Status.CanTransitionTo(domain.BookingCancelled),
		Payments:       payments,
	}
}
