package domain

import "github.com/cockroachdb/errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")

	ErrUnknownSeatClass     = errors.New("unknown seat class")
	ErrUnknownSeatStatus    = errors.New("unknown seat status")
	ErrUnknownBookingStatus = errors.New("unknown booking status")
	ErrUnknownCurrency      = errors.New("unknown currency")
	ErrNegativePrice        = errors.New("negative price")
	ErrUnpricedSeatClass    = errors.New("seat class has no price")
	ErrDuplicateSeat        = errors.New("duplicate seat id")
	ErrEmptySelection       = errors.New("no seats selected")
	ErrInvalidTransition    = errors.New("invalid booking status transition")
	ErrCancellationClosed   = errors.New("cancellation window closed")
)
