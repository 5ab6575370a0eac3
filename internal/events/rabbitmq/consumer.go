package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"ridehail/internal/events"
)

// HandlerFunc processes one decoded event. Returning an error requeues the
// message once; a redelivered message that fails again is dropped.
type HandlerFunc func(ctx context.Context, event events.Event) error

// Consumer reads events from a durable queue bound to the exchange.
type Consumer struct {
	ch       Channel
	queue    string
	handler  HandlerFunc
	prefetch int
}

// NewConsumer declares queue and binds it to exchange for each routing key.
func NewConsumer(ch Channel, exchange, queue string, keys []string, handler HandlerFunc) (*Consumer, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(queue, key, exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind %s to %s: %w", queue, key, err)
		}
	}
	return &Consumer{ch: ch, queue: queue, handler: handler, prefetch: 10}, nil
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	log.Printf("[AMQP] consuming from %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				log.Printf("[AMQP] delivery channel for %s closed", c.queue)
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	var event events.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("[AMQP] dropping malformed message on %s: %v", c.queue, err)
		_ = msg.Nack(false, false)
		return
	}

	if err := c.handler(ctx, event); err != nil {
		requeue := !msg.Redelivered
		log.Printf("[AMQP] handler failed for %s on ride %s (requeue=%t): %v", event.Type, event.RideID, requeue, err)
		_ = msg.Nack(false, requeue)
		return
	}
	_ = msg.Ack(false)
}

// LogRideCreated is the default handler wired by the server: it records new
// ride requests as they come back off the broker.
func LogRideCreated(ctx context.Context, event events.Event) error {
	log.Printf("[AMQP] ride %s requested by rider %s for driver %s", event.RideID, event.RiderID, event.DriverID)
	return nil
}
