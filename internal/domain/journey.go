package domain

import (
	"strings"
	"time"
)

type Journey struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	From          string     `json:"from"`
	To            string     `json:"to"`
	DepartureTime time.Time  `json:"departure_time"`
	ArrivalTime   time.Time  `json:"arrival_time"`
	Currency      string     `json:"currency"`
	Prices        PriceTable `json:"prices"`
	Seats         []Seat     `json:"seats"`
}

func (j Journey) AvailableSeats() int {
	n := 0
	for _, s := range j.Seats {
		if s.IsAvailable() {
			n++
		}
	}
	return n
}

// JourneyQuery filters journeys by case-insensitive origin and destination
// substrings and by departure day. Empty fields match everything.
type JourneyQuery struct {
	From string
	To   string
	Date time.Time
}

func (q JourneyQuery) Matches(j Journey) bool {
	if q.From != "" && !strings.Contains(strings.ToLower(j.From), strings.ToLower(q.From)) {
		return false
	}
	if q.To != "" && !strings.Contains(strings.ToLower(j.To), strings.ToLower(q.To)) {
		return false
	}
	if !q.Date.IsZero() {
		start, end := q.DayBounds()
		if j.DepartureTime.Before(start) || !j.DepartureTime.Before(end) {
			return false
		}
	}
	return true
}

// DayBounds returns the half-open [start, end) range of the query date in UTC.
func (q JourneyQuery) DayBounds() (time.Time, time.Time) {
	y, m, d := q.Date.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
