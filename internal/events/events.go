// Package events carries ride lifecycle notifications out of the service
// layer after a transition has been committed. The state machine itself never
// publishes; the ride service does, once storage has accepted the change.
package events

import (
	"context"
	"errors"
	"log"
	"time"

	"ridehail/internal/domain/entities"
)

// Type is the event name, also used as the AMQP routing key.
type Type string

const (
	TypeRideCreated   Type = "ride.created"
	TypeRideAccepted  Type = "ride.accepted"
	TypeRideActive    Type = "ride.active"
	TypeRideCompleted Type = "ride.completed"
	TypeRideCancelled Type = "ride.cancelled"
)

// TypeForStatus returns the event announcing that a ride entered status.
func TypeForStatus(status entities.RideStatus) Type {
	switch status {
	case entities.RideStatusRequested:
		return TypeRideCreated
	case entities.RideStatusAccepted:
		return TypeRideAccepted
	case entities.RideStatusActive:
		return TypeRideActive
	case entities.RideStatusCompleted:
		return TypeRideCompleted
	default:
		return TypeRideCancelled
	}
}

type Event struct {
	Type       Type                `json:"type"`
	RideID     string              `json:"ride_id"`
	RiderID    string              `json:"rider_id"`
	DriverID   string              `json:"driver_id"`
	Status     entities.RideStatus `json:"status"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// NewRideEvent snapshots a committed ride into an event.
func NewRideEvent(eventType Type, ride *entities.Ride) Event {
	return Event{
		Type:       eventType,
		RideID:     ride.ID,
		RiderID:    ride.RiderID,
		DriverID:   ride.DriverID,
		Status:     ride.Status,
		OccurredAt: ride.UpdatedAt,
	}
}

// Publisher delivers events somewhere. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes one log line per event. It is the publisher used when
// no broker is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Printf("[EVENTS] %s ride=%s rider=%s driver=%s status=%s",
		event.Type, event.RideID, event.RiderID, event.DriverID, event.Status)
	return nil
}

// Fanout publishes to every wrapped publisher, even when an earlier one
// fails, and returns the joined errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
