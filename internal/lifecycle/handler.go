// Package lifecycle is the ride state machine. For a ride and a requested
// action it decides whether the transition is legal, whether the actor may
// request it, and what the ride looks like afterwards.
//
// Each status has one handler. A handler re-reads the ride through the
// storage collaborator, validates, mutates the entity in memory and returns
// it. It never writes: the caller commits the result with a status
// precondition (repository.RideRepository.UpdateIfStatus), which is what
// stops two concurrent transitions from both succeeding.
//
// Go Learning Note — Embedding Instead of Inheritance:
// Every concrete state embeds base, which implements all six transitions as
// "not allowed". A state then declares only the methods that are legal for
// it; Go's method promotion picks the concrete method when one exists and
// falls back to base otherwise. The result reads like an abstract base class
// but is plain composition: there is no virtual dispatch back into the
// embedding type.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"ridehail/internal/domain/entities"
)

// Handler implements the transitions legal from one status. Methods that are
// not legal return a *TransitionError.
type Handler interface {
	// Status is the status this handler owns. The initial handler, which
	// only creates rides, reports the empty status.
	Status() entities.RideStatus

	Create(ctx context.Context, req entities.NewRideRequest) (*entities.Ride, error)
	Accept(ctx context.Context, rideID, driverID string) (*entities.Ride, error)
	Reject(ctx context.Context, rideID, driverID string) (*entities.Ride, error)
	Start(ctx context.Context, rideID string) (*entities.Ride, error)
	Complete(ctx context.Context, rideID string) (*entities.Ride, error)
	Cancel(ctx context.Context, rideID string, privileged bool) (*entities.Ride, error)
}

// RideReader loads a ride by id. It must return a ride the handler may
// mutate freely.
type RideReader interface {
	GetByID(ctx context.Context, id string) (*entities.Ride, error)
}

// RiderReader and DriverReader load the parties a new ride refers to.
type RiderReader interface {
	GetByID(ctx context.Context, id string) (*entities.Rider, error)
}

type DriverReader interface {
	GetByID(ctx context.Context, id string) (*entities.Driver, error)
}

// deps is shared, read-only context for all handlers.
type deps struct {
	rides   RideReader
	riders  RiderReader
	drivers DriverReader
	now     func() time.Time
	newID   func() string
}

// base supplies the uniform rejection for every transition and the common
// load-and-check step.
type base struct {
	status entities.RideStatus
	deps   *deps
}

func (b *base) Status() entities.RideStatus { return b.status }

func (b *base) Create(ctx context.Context, req entities.NewRideRequest) (*entities.Ride, error) {
	return nil, NewTransitionError(ActionCreate, b.status, "")
}

func (b *base) Accept(ctx context.Context, rideID, driverID string) (*entities.Ride, error) {
	return nil, NewTransitionError(ActionAccept, b.status, "")
}

func (b *base) Reject(ctx context.Context, rideID, driverID string) (*entities.Ride, error) {
	return nil, NewTransitionError(ActionReject, b.status, "")
}

func (b *base) Start(ctx context.Context, rideID string) (*entities.Ride, error) {
	return nil, NewTransitionError(ActionStart, b.status, "")
}

func (b *base) Complete(ctx context.Context, rideID string) (*entities.Ride, error) {
	return nil, NewTransitionError(ActionComplete, b.status, "")
}

func (b *base) Cancel(ctx context.Context, rideID string, privileged bool) (*entities.Ride, error) {
	return nil, NewTransitionError(ActionCancel, b.status, "")
}

// load re-reads the ride and confirms its persisted status is still the one
// this handler owns. A cached status from an earlier read is never trusted.
func (b *base) load(ctx context.Context, action Action, rideID string) (*entities.Ride, error) {
	ride, err := b.deps.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("load ride %s: %w", rideID, err)
	}
	current, err := entities.ParseRideStatus(string(ride.Status))
	if err != nil {
		return nil, invalidState(string(ride.Status))
	}
	if current != b.status {
		return nil, NewTransitionError(action, current, "ride is no longer "+string(b.status))
	}
	ride.Status = current
	return ride, nil
}

// moveTo sets the new status and the bookkeeping timestamp.
func (b *base) moveTo(ride *entities.Ride, status entities.RideStatus, at time.Time) *entities.Ride {
	ride.Status = status
	ride.UpdatedAt = at
	return ride
}

// checkDriver enforces that the acting driver is the one assigned at creation.
func checkDriver(action Action, ride *entities.Ride, driverID string) error {
	if driverID == "" || driverID != ride.DriverID {
		return notAuthorized(action, ride.Status,
			fmt.Sprintf("driver %q is not assigned to ride %s", driverID, ride.ID))
	}
	return nil
}
