package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/rail-seat-booking/internal/adapters/crdb"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

type Store interface {
	GetUnpublishedOutbox(ctx context.Context, limit int) ([]crdb.OutboxRecord, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

const (
	DefaultBatchSize   = 50
	DefaultMaxAttempts = 10
	publishRetries     = 3
)

// Publisher forwards committed outbox records to the broker. Delivery is at
// least once; consumers dedupe on MessageId.
type Publisher struct {
	store       Store
	broker      Broker
	logger      observability.Logger
	BatchSize   int
	MaxAttempts int
	// PublishRetries bounds broker calls per record within one batch.
	PublishRetries int
	Backoff        time.Duration
	now            func() time.Time
}

func NewPublisher(store Store, broker Broker, logger observability.Logger) *Publisher {
	return &Publisher{
		store:          store,
		broker:         broker,
		logger:         logger,
		BatchSize:      DefaultBatchSize,
		MaxAttempts:    DefaultMaxAttempts,
		PublishRetries: publishRetries,
		Backoff:        time.Second,
		now:            time.Now,
	}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	p.logger.WithField("interval", interval.String()).Info("outbox publisher started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.WithError(err).Error("outbox batch failed")
			}
		}
	}
}

// PublishBatch forwards one batch and returns how many records were published.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	records, err := p.store.GetUnpublishedOutbox(ctx, p.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		observability.OutboxLag.Set(0)
		return 0, nil
	}
	observability.OutboxLag.Set(p.now().Sub(records[0].CreatedAt).Seconds())

	published := 0
	for _, rec := range records {
		log := p.logger.WithField("outbox_id", rec.ID).WithField("event_type", rec.EventType)
		if err := p.publishWithRetry(ctx, rec); err != nil {
			log.WithError(err).Warn("publish failed")
			if err := p.store.MarkAttemptFailed(ctx, rec.ID, p.MaxAttempts); err != nil {
				log.WithError(err).Error("failed to record publish attempt")
			}
			continue
		}
		if err := p.store.MarkPublished(ctx, rec.ID, p.now()); err != nil {
			log.WithError(err).Error("failed to mark outbox record published")
			continue
		}
		observability.OutboxPublished.WithLabelValues(rec.EventType).Inc()
		published++
	}
	return published, nil
}

func (p *Publisher) publishWithRetry(ctx context.Context, rec crdb.OutboxRecord) error {
	msg := amqp.Publishing{
		MessageId:    rec.DedupeKey,
		Type:         rec.EventType,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    rec.CreatedAt,
		Body:         rec.Payload,
	}
	var err error
	for i := 0; i < p.PublishRetries; i++ {
		if err = p.broker.Publish(ctx, rec.EventType, msg); err == nil {
			return nil
		}
		if i == p.PublishRetries-1 {
			break
		}
		observability.RabbitPublishRetries.Inc()
		backoff := time.Duration(1<<i) * p.Backoff
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
