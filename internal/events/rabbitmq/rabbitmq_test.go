package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ridehail/internal/events"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  map[string]string
	bindings   map[string][]string
	published  []published
	deliveries chan amqp.Delivery
	publishErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		exchanges:  map[string]string{},
		bindings:   map[string][]string{},
		deliveries: make(chan amqp.Delivery, 8),
	}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchanges[name] = kind
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bindings[name] = append(f.bindings[name], exchange+"/"+key)
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

// ackRecorder implements amqp.Acknowledger.
type ackRecorder struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue []bool
	done    chan struct{}
}

func newAckRecorder() *ackRecorder { return &ackRecorder{done: make(chan struct{}, 8)} }

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acks++
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	a.nacks++
	a.requeue = append(a.requeue, requeue)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func (a *ackRecorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-a.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for acknowledgement %d", i+1)
		}
	}
}

func sampleEvent() events.Event {
	return events.Event{
		Type:       events.TypeRideAccepted,
		RideID:     "ride-1",
		RiderID:    "rider-1",
		DriverID:   "driver-1",
		Status:     "accepted",
		OccurredAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_DeclaresTopicExchangeAndRoutesByType(t *testing.T) {
	ch := newFakeChannel()
	pub, err := NewPublisher(ch, "rides")
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if ch.exchanges["rides"] != amqp.ExchangeTopic {
		t.Errorf("Expected topic exchange, got %q", ch.exchanges["rides"])
	}

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("Expected one message, got %d", len(ch.published))
	}

	got := ch.published[0]
	if got.exchange != "rides" || got.key != "ride.accepted" {
		t.Errorf("Unexpected route %s/%s", got.exchange, got.key)
	}
	if got.msg.DeliveryMode != amqp.Persistent || got.msg.ContentType != "application/json" {
		t.Errorf("Unexpected message properties: %+v", got.msg)
	}

	var decoded events.Event
	if err := json.Unmarshal(got.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.RideID != "ride-1" || decoded.Type != events.TypeRideAccepted {
		t.Errorf("Unexpected body: %+v", decoded)
	}
}

func TestPublisher_WrapsBrokerErrors(t *testing.T) {
	ch := newFakeChannel()
	boom := errors.New("channel closed")
	ch.publishErr = boom
	pub, _ := NewPublisher(ch, "rides")

	if err := pub.Publish(context.Background(), sampleEvent()); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped broker error, got %v", err)
	}
}

func TestConsumer_AcksNacksAndRequeues(t *testing.T) {
	ch := newFakeChannel()
	var handled []events.Event
	var mu sync.Mutex
	failOnce := errors.New("downstream unavailable")

	consumer, err := NewConsumer(ch, "rides", "ride-created", []string{"ride.created"}, func(ctx context.Context, ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, ev)
		if ev.RideID == "ride-retry" {
			return failOnce
		}
		return nil
	})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	if b := ch.bindings["ride-created"]; len(b) != 1 || b[0] != "rides/ride.created" {
		t.Errorf("Unexpected bindings %v", b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	acks := newAckRecorder()
	good, _ := json.Marshal(sampleEvent())
	retry := sampleEvent()
	retry.RideID = "ride-retry"
	retryBody, _ := json.Marshal(retry)

	ch.deliveries <- amqp.Delivery{Acknowledger: acks, Body: good}
	ch.deliveries <- amqp.Delivery{Acknowledger: acks, Body: []byte("{not json")}
	ch.deliveries <- amqp.Delivery{Acknowledger: acks, Body: retryBody}
	ch.deliveries <- amqp.Delivery{Acknowledger: acks, Body: retryBody, Redelivered: true}
	acks.wait(t, 4)

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	acks.mu.Lock()
	defer acks.mu.Unlock()
	if acks.acks != 1 || acks.nacks != 3 {
		t.Errorf("Expected 1 ack and 3 nacks, got %d and %d", acks.acks, acks.nacks)
	}
	want := []bool{false, true, false}
	for i, r := range want {
		if acks.requeue[i] != r {
			t.Errorf("Nack %d: expected requeue=%t, got %t", i, r, acks.requeue[i])
		}
	}
	if len(handled) != 3 {
		t.Errorf("Expected handler to see 3 decodable messages, got %d", len(handled))
	}
}
