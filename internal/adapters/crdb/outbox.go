package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	Attempts      int
	DedupeKey     string
}

func recordFromEvent(ev domain.Event) OutboxRecord {
	return OutboxRecord{
		ID:            ev.ID,
		AggregateType: "booking",
		AggregateID:   ev.AggregateID,
		EventType:     ev.Type,
		Payload:       ev.Payload,
		DedupeKey:     ev.ID.String(),
	}
}

func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, string(record.Payload), record.DedupeKey)
	return err
}

func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json::STRING, created_at, published_at, status, attempts, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var (
			rec     OutboxRecord
			payload string
		)
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.Attempts, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		rec.Payload = []byte(payload)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}

// MarkAttemptFailed counts a failed publish and parks the row as FAILED once
// maxAttempts is reached.
func (r *Repository) MarkAttemptFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox SET attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= $2 THEN 'FAILED' ELSE status END
		WHERE id = $1
	`, id, maxAttempts)
	return err
}
