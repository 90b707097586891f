package domain

import "github.com/cockroachdb/errors"

// SeatSelection is the in-session view of a journey's seat map and the seats
// the user has picked. It has a single writer (the owning session) and is not
// safe for concurrent use.
type SeatSelection struct {
	prices    PriceTable
	currency  string
	order     []string
	inventory map[string]Seat
	selected  []string
	quote     Quote
	listeners []func(Quote)
}

func NewSeatSelection(prices PriceTable, currency string) *SeatSelection {
	s := &SeatSelection{
		prices:    prices,
		currency:  currency,
		inventory: map[string]Seat{},
	}
	s.quote = NewQuote(nil, prices, currency)
	return s
}

// Initialize replaces the inventory and drops any previous selection.
// On error the previous state is left untouched.
func (s *SeatSelection) Initialize(seats []Seat) error {
	order := make([]string, 0, len(seats))
	inventory := make(map[string]Seat, len(seats))
	for _, seat := range seats {
		if err := seat.validate(); err != nil {
			return err
		}
		if _, dup := inventory[seat.ID]; dup {
			return errors.Wrapf(ErrDuplicateSeat, "%s", seat.ID)
		}
		if !s.prices.Covers(seat.Class) {
			return errors.Wrapf(ErrUnpricedSeatClass, "seat %s: %s", seat.ID, seat.Class)
		}
		inventory[seat.ID] = seat
		order = append(order, seat.ID)
	}
	s.order = order
	s.inventory = inventory
	s.selected = nil
	s.recompute()
	return nil
}

func (s *SeatSelection) OnChange(fn func(Quote)) {
	s.listeners = append(s.listeners, fn)
}

// Toggle adds an available seat to the selection or removes it if already
// selected. Unknown and booked seats are ignored and Toggle reports false.
func (s *SeatSelection) Toggle(seatID string) bool {
	seat, ok := s.inventory[seatID]
	if !ok || !seat.IsAvailable() {
		return false
	}
	if i := s.indexOf(seatID); i >= 0 {
		s.selected = append(s.selected[:i], s.selected[i+1:]...)
	} else {
		s.selected = append(s.selected, seatID)
	}
	s.recompute()
	return true
}

func (s *SeatSelection) Clear() {
	s.selected = nil
	s.recompute()
}

// MarkBooked flips seats to booked after an external confirmation and
// returns how many seats changed. Flipped seats leave the selection.
func (s *SeatSelection) MarkBooked(ids ...string) int {
	flipped, changed := 0, false
	for _, id := range ids {
		seat, ok := s.inventory[id]
		if !ok || seat.Status == SeatBooked {
			continue
		}
		seat.Status = SeatBooked
		s.inventory[id] = seat
		flipped++
		if i := s.indexOf(id); i >= 0 {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			changed = true
		}
	}
	if changed {
		s.recompute()
	}
	return flipped
}

// Selection returns the selected seats in the order they were picked.
func (s *SeatSelection) Selection() []Seat {
	out := make([]Seat, 0, len(s.selected))
	for _, id := range s.selected {
		out = append(out, s.inventory[id])
	}
	return out
}

func (s *SeatSelection) Seats() []Seat {
	out := make([]Seat, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.inventory[id])
	}
	return out
}

func (s *SeatSelection) IsSelected(seatID string) bool {
	return s.indexOf(seatID) >= 0
}

func (s *SeatSelection) Quote() Quote {
	return s.quote
}

func (s *SeatSelection) Prices() PriceTable {
	return s.prices
}

func (s *SeatSelection) Currency() string {
	return s.currency
}

func (s *SeatSelection) indexOf(seatID string) int {
	for i, id := range s.selected {
		if id == seatID {
			return i
		}
	}
	return -1
}

func (s *SeatSelection) recompute() {
	s.quote = NewQuote(s.Selection(), s.prices, s.currency)
	for _, fn := range s.listeners {
		fn(s.quote)
	}
}
