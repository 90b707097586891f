package domain

import (
	"fmt"
	"math/rand/v2"
)

// SeatLayout describes a rectangular coach: rows are lettered from A, seats
// numbered from 1. The first FirstClassSeats of every row are first class.
type SeatLayout struct {
	Rows            int
	SeatsPerRow     int
	FirstClassSeats int
	BookedRatio     float64
}

var DefaultSeatLayout = SeatLayout{Rows: 10, SeatsPerRow: 6, FirstClassSeats: 3, BookedRatio: 0.3}

// GenerateSeatMap builds demo inventory. Availability is drawn from rng, so a
// fixed seed gives the same map every time. A nil rng or zero BookedRatio
// leaves every seat available.
func GenerateSeatMap(layout SeatLayout, rng *rand.Rand) []Seat {
	seats := make([]Seat, 0, layout.Rows*layout.SeatsPerRow)
	for row := 0; row < layout.Rows; row++ {
		for n := 0; n < layout.SeatsPerRow; n++ {
			id := fmt.Sprintf("%c%d", 'A'+row, n+1)
			class := ClassEconomy
			if n < layout.FirstClassSeats {
				class = ClassFirst
			}
			status := SeatAvailable
			if rng != nil && layout.BookedRatio > 0 && rng.Float64() < layout.BookedRatio {
				status = SeatBooked
			}
			seats = append(seats, Seat{ID: id, Number: id, Status: status, Class: class})
		}
	}
	return seats
}

func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
