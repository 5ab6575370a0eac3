package lifecycle

import (
	"context"
	"fmt"

	"ridehail/internal/domain/entities"
)

// initialState owns ride creation. No persisted ride has this state.
type initialState struct{ base }

// Create validates the payload, confirms the rider and the driver exist and
// returns a new ride in Requested. The ride is not stored yet.
func (s *initialState) Create(ctx context.Context, req entities.NewRideRequest) (*entities.Ride, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.deps.riders.GetByID(ctx, req.RiderID); err != nil {
		return nil, fmt.Errorf("load rider %s: %w", req.RiderID, err)
	}
	if _, err := s.deps.drivers.GetByID(ctx, req.DriverID); err != nil {
		return nil, fmt.Errorf("load driver %s: %w", req.DriverID, err)
	}
	return entities.NewRide(s.deps.newID(), req, s.deps.now()), nil
}

// requestedState: the assigned driver accepts or rejects; anyone may cancel.
type requestedState struct{ base }

func (s *requestedState) Accept(ctx context.Context, rideID, driverID string) (*entities.Ride, error) {
	ride, err := s.load(ctx, ActionAccept, rideID)
	if err != nil {
		return nil, err
	}
	if err := checkDriver(ActionAccept, ride, driverID); err != nil {
		return nil, err
	}
	return s.moveTo(ride, entities.RideStatusAccepted, s.deps.now()), nil
}

// Reject is the driver declining the ride, which ends it.
func (s *requestedState) Reject(ctx context.Context, rideID, driverID string) (*entities.Ride, error) {
	ride, err := s.load(ctx, ActionReject, rideID)
	if err != nil {
		return nil, err
	}
	if err := checkDriver(ActionReject, ride, driverID); err != nil {
		return nil, err
	}
	return s.moveTo(ride, entities.RideStatusCancelled, s.deps.now()), nil
}

func (s *requestedState) Cancel(ctx context.Context, rideID string, privileged bool) (*entities.Ride, error) {
	ride, err := s.load(ctx, ActionCancel, rideID)
	if err != nil {
		return nil, err
	}
	return s.moveTo(ride, entities.RideStatusCancelled, s.deps.now()), nil
}

// acceptedState: the ride can start or be cancelled by anyone.
type acceptedState struct{ base }

func (s *acceptedState) Start(ctx context.Context, rideID string) (*entities.Ride, error) {
	ride, err := s.load(ctx, ActionStart, rideID)
	if err != nil {
		return nil, err
	}
	now := s.deps.now()
	// started-at is set once and never cleared; a ride only passes
	// through accepted once, so this is the only writer.
	if ride.StartedAt == nil {
		ride.StartedAt = &now
	}
	return s.moveTo(ride, entities.RideStatusActive, now), nil
}

func (s *acceptedState) Cancel(ctx context.Context, rideID string, privileged bool) (*entities.Ride, error) {
	ride, err := s.load(ctx, ActionCancel, rideID)
	if err != nil {
		return nil, err
	}
	return s.moveTo(ride, entities.RideStatusCancelled, s.deps.now()), nil
}

// activeState: the ride completes, or a privileged caller cancels it.
type activeState struct{ base }

func (s *activeState) Complete(ctx context.Context, rideID string) (*entities.Ride, error) {
	ride, err := s.load(ctx, ActionComplete, rideID)
	if err != nil {
		return nil, err
	}
	now := s.deps.now()
	ride.CompletedAt = &now
	return s.moveTo(ride, entities.RideStatusCompleted, now), nil
}

func (s *activeState) Cancel(ctx context.Context, rideID string, privileged bool) (*entities.Ride, error) {
	ride, err := s.load(ctx, ActionCancel, rideID)
	if err != nil {
		return nil, err
	}
	if !privileged {
		return nil, notAuthorized(ActionCancel, ride.Status, "cancelling an active ride requires privilege")
	}
	return s.moveTo(ride, entities.RideStatusCancelled, s.deps.now()), nil
}

// completedState and cancelledState are terminal: base rejects everything.
type completedState struct{ base }

type cancelledState struct{ base }
