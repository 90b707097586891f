package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Session is one user's in-progress seat choice for one journey. Every
// session owns its own SeatSelection. Version counts successful saves and
// guards against lost updates between concurrent writers.
type Session struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	JourneyID     string
	Currency      string
	DepartureTime time.Time
	ArrivalTime   time.Time
	CreatedAt     time.Time
	Version       int64
	Selection     *SeatSelection
}

func NewSession(userID uuid.UUID, journey Journey, now time.Time) (*Session, error) {
	selection := NewSeatSelection(journey.Prices, journey.Currency)
	if err := selection.Initialize(journey.Seats); err != nil {
		return nil, errors.Wrapf(err, "journey %s", journey.ID)
	}
	return &Session{
		ID:            uuid.New(),
		UserID:        userID,
		JourneyID:     journey.ID,
		Currency:      journey.Currency,
		DepartureTime: journey.DepartureTime,
		ArrivalTime:   journey.ArrivalTime,
		CreatedAt:     now,
		Selection:     selection,
	}, nil
}

type SessionSnapshot struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	JourneyID     string     `json:"journey_id"`
	Currency      string     `json:"currency"`
	DepartureTime time.Time  `json:"departure_time"`
	ArrivalTime   time.Time  `json:"arrival_time"`
	CreatedAt     time.Time  `json:"created_at"`
	Prices        PriceTable `json:"prices"`
	Seats         []Seat     `json:"seats"`
	Selected      []string   `json:"selected"`
	Version       int64      `json:"version"`
}

func (s *Session) Snapshot() SessionSnapshot {
	selected := s.Selection.Selection()
	ids := make([]string, len(selected))
	for i, seat := range selected {
		ids[i] = seat.ID
	}
	return SessionSnapshot{
		ID:            s.ID,
		UserID:        s.UserID,
		JourneyID:     s.JourneyID,
		Currency:      s.Currency,
		DepartureTime: s.DepartureTime,
		ArrivalTime:   s.ArrivalTime,
		CreatedAt:     s.CreatedAt,
		Prices:        s.Selection.Prices(),
		Seats:         s.Selection.Seats(),
		Selected:      ids,
		Version:       s.Version,
	}
}

func RestoreSession(snap SessionSnapshot) (*Session, error) {
	selection := NewSeatSelection(snap.Prices, snap.Currency)
	if err := selection.Initialize(snap.Seats); err != nil {
		return nil, errors.Wrapf(err, "session %s", snap.ID)
	}
	for _, id := range snap.Selected {
		selection.Toggle(id)
	}
	return &Session{
		ID:            snap.ID,
		UserID:        snap.UserID,
		JourneyID:     snap.JourneyID,
		Currency:      snap.Currency,
		DepartureTime: snap.DepartureTime,
		ArrivalTime:   snap.ArrivalTime,
		CreatedAt:     snap.CreatedAt,
		Version:       snap.Version,
		Selection:     selection,
	}, nil
}
