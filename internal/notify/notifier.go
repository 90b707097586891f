package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

// Patterns are the routing keys the notifier subscribes to.
var Patterns = []string{"booking.*", "payment.*"}

var errMalformed = errors.New("malformed event")

type Store interface {
	Insert(ctx context.Context, n domain.Notification) error
}

// Notifier turns booking events into feed entries.
type Notifier struct {
	store  Store
	logger observability.Logger
	now    func() time.Time
}

func NewNotifier(store Store, logger observability.Logger) *Notifier {
	return &Notifier{store: store, logger: logger, now: time.Now}
}

// Handle stores the notification for one event. The notification ID is
// derived from messageID so a redelivered event maps to the same entry.
func (n *Notifier) Handle(ctx context.Context, routingKey, messageID string, body []byte) error {
	var ev domain.BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.WithSecondaryError(errors.Wrapf(errMalformed, "event %s", messageID), err)
	}
	note, ok := domain.NotificationFor(routingKey, ev, n.now())
	if !ok {
		return nil
	}
	if messageID != "" {
		note.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(messageID))
	}
	if err := n.store.Insert(ctx, note); err != nil {
		return err
	}
	observability.NotificationsStored.WithLabelValues(string(note.Type)).Inc()
	return nil
}

// Run consumes deliveries until the channel closes or ctx ends. Malformed
// messages are dropped; storage failures are requeued.
func (n *Notifier) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			log := n.logger.WithField("routing_key", d.RoutingKey).WithField("message_id", d.MessageId)
			err := n.Handle(ctx, d.RoutingKey, d.MessageId, d.Body)
			switch {
			case err == nil:
				d.Ack(false)
			case errors.Is(err, errMalformed):
				log.WithError(err).Warn("dropping malformed event")
				d.Nack(false, false)
			default:
				log.WithError(err).Error("failed to store notification")
				d.Nack(false, true)
			}
		}
	}
}
