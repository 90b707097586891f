package domain

import (
	"strings"

	"github.com/cockroachdb/errors"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatBooked    SeatStatus = "booked"
)

func ParseSeatStatus(s string) (SeatStatus, error) {
	switch st := SeatStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case SeatAvailable, SeatBooked:
		return st, nil
	}
	return "", errors.Wrapf(ErrUnknownSeatStatus, "%q", s)
}

// SeatClass is the fare tier of a seat. The set is closed; anything else is
// rejected by ParseSeatClass.
type SeatClass string

const (
	ClassFirst    SeatClass = "first"
	ClassBusiness SeatClass = "business"
	ClassEconomy  SeatClass = "economy"
)

var seatClasses = []SeatClass{ClassFirst, ClassBusiness, ClassEconomy}

func SeatClasses() []SeatClass {
	return append([]SeatClass(nil), seatClasses...)
}

func ParseSeatClass(s string) (SeatClass, error) {
	c := SeatClass(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", errors.Wrapf(ErrUnknownSeatClass, "%q", s)
}

func (c SeatClass) Valid() bool {
	switch c {
	case ClassFirst, ClassBusiness, ClassEconomy:
		return true
	}
	return false
}

type Seat struct {
	ID     string     `json:"id"`
	Number string     `json:"number"`
	Status SeatStatus `json:"status"`
	Class  SeatClass  `json:"class"`
}

func (s Seat) IsAvailable() bool {
	return s.Status == SeatAvailable
}

func (s Seat) validate() error {
	if s.ID == "" {
		return errors.Wrap(ErrInvalidInput, "seat id is empty")
	}
	if s.Status != SeatAvailable && s.Status != SeatBooked {
		return errors.Wrapf(ErrUnknownSeatStatus, "seat %s: %q", s.ID, s.Status)
	}
	if !s.Class.Valid() {
		return errors.Wrapf(ErrUnknownSeatClass, "seat %s: %q", s.ID, s.Class)
	}
	return nil
}
