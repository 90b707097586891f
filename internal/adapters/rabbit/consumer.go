package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Consumer struct {
	ch    *amqp.Channel
	queue string
}

// NewConsumer declares a durable queue bound to Exchange for each routing
// pattern, e.g. "booking.*".
func NewConsumer(conn *amqp.Connection, queue string, patterns ...string) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	for _, pattern := range patterns {
		if err := ch.QueueBind(queue, pattern, Exchange, false, nil); err != nil {
			return nil, err
		}
	}
	if err := ch.Qos(16, 0, false); err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, queue: queue}, nil
}

// Consume starts delivery with manual acks. The channel closes when ctx is
// cancelled or the broker connection drops.
func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		c.ch.Close()
	}()
	return deliveries, nil
}
