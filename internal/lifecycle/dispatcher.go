package lifecycle

import (
	"time"

	"ridehail/internal/domain/entities"
	"ridehail/pkg/utils"
)

// Dispatcher maps a ride status to the handler that owns it. Handlers hold no
// per-ride data, so one Dispatcher built at startup serves every request
// concurrently.
type Dispatcher struct {
	initial   *initialState
	requested *requestedState
	accepted  *acceptedState
	active    *activeState
	completed *completedState
	cancelled *cancelledState
}

// Option customizes the handlers' clock or id source.
type Option func(*deps)

// WithClock replaces time.Now as the source of requested/started/completed
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// WithIDGenerator replaces the UUID generator used for new ride ids.
func WithIDGenerator(newID func() string) Option {
	return func(d *deps) { d.newID = newID }
}

// NewDispatcher builds one handler per status, all sharing the given readers.
func NewDispatcher(rides RideReader, riders RiderReader, drivers DriverReader, opts ...Option) *Dispatcher {
	d := &deps{
		rides:   rides,
		riders:  riders,
		drivers: drivers,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   utils.GenerateID,
	}
	for _, opt := range opts {
		opt(d)
	}
	return &Dispatcher{
		initial:   &initialState{base{deps: d}},
		requested: &requestedState{base{status: entities.RideStatusRequested, deps: d}},
		accepted:  &acceptedState{base{status: entities.RideStatusAccepted, deps: d}},
		active:    &activeState{base{status: entities.RideStatusActive, deps: d}},
		completed: &completedState{base{status: entities.RideStatusCompleted, deps: d}},
		cancelled: &cancelledState{base{status: entities.RideStatusCancelled, deps: d}},
	}
}

// InitialState returns the handler used to create rides.
func (d *Dispatcher) InitialState() Handler {
	return d.initial
}

// Resolve returns the handler for a status token. The token is matched
// case-insensitively; empty or unknown tokens fail with ErrInvalidState.
func (d *Dispatcher) Resolve(token string) (Handler, error) {
	status, err := entities.ParseRideStatus(token)
	if err != nil {
		return nil, invalidState(token)
	}
	return d.handlerFor(status), nil
}

// ResolveRide resolves the handler for a ride's current status. A nil ride is
// treated as a missing status.
func (d *Dispatcher) ResolveRide(ride *entities.Ride) (Handler, error) {
	if ride == nil {
		return nil, invalidState("")
	}
	return d.Resolve(string(ride.Status))
}

// handlerFor is the single exhaustive match over the vocabulary. status has
// already been through ParseRideStatus, so the default branch is unreachable.
func (d *Dispatcher) handlerFor(status entities.RideStatus) Handler {
	switch status {
	case entities.RideStatusRequested:
		return d.requested
	case entities.RideStatusAccepted:
		return d.accepted
	case entities.RideStatusActive:
		return d.active
	case entities.RideStatusCompleted:
		return d.completed
	case entities.RideStatusCancelled:
		return d.cancelled
	default:
		panic("lifecycle: unhandled ride status " + string(status))
	}
}
