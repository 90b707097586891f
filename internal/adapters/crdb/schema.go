package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		session_id UUID NOT NULL UNIQUE,
		journey_id STRING NOT NULL,
		total_amount DECIMAL NOT NULL CHECK (total_amount >= 0),
		currency STRING NOT NULL,
		status STRING NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
		departure_time TIMESTAMPTZ NOT NULL,
		arrival_time TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		INDEX bookings_user_idx (user_id, created_at DESC),
		INDEX bookings_status_arrival_idx (status, arrival_time)
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_status_departure_idx ON bookings (status, departure_time)`,
	`CREATE TABLE IF NOT EXISTS booking_seats (
		booking_id UUID NOT NULL REFERENCES bookings (id),
		position INT NOT NULL,
		seat_id STRING NOT NULL,
		number STRING NOT NULL,
		class STRING NOT NULL,
		price DECIMAL NOT NULL,
		PRIMARY KEY (booking_id, seat_id)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		booking_id UUID NOT NULL REFERENCES bookings (id),
		user_id UUID NOT NULL,
		amount DECIMAL NOT NULL,
		currency STRING NOT NULL,
		status STRING NOT NULL CHECK (status IN ('completed', 'failed', 'pending')),
		method STRING NOT NULL,
		reference STRING NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		INDEX payments_user_idx (user_id, created_at DESC),
		INDEX payments_booking_idx (booking_id)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type STRING NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type STRING NOT NULL,
		payload_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status STRING NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
		attempts INT NOT NULL DEFAULT 0,
		dedupe_key STRING NOT NULL,
		INDEX outbox_status_idx (status, created_at)
	)`,
}

// Migrate creates the tables the repository needs. It is safe to run on every start.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}
