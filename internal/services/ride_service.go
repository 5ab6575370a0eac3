package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ridehail/internal/domain/entities"
	"ridehail/internal/events"
	"ridehail/internal/lifecycle"
	"ridehail/internal/repository"
	"ridehail/pkg/utils"
)

var (
	ErrRideNotFound     = repository.ErrRideNotFound
	ErrActiveRideExists = errors.New("rider already has an active ride")
	ErrUnsupportedRole  = errors.New("operation not supported for this role")
	ErrInvalidParty     = errors.New("invalid rider or driver")
)

// Role identifies who is acting on a ride.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// ParseRole accepts the role names used in tokens, case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleRider, RoleDriver, RoleAdmin:
		return r, true
	}
	return "", false
}

// Actor is the authenticated party behind a request.
type Actor struct {
	ID   string
	Role Role
}

// Privileged is the authorization signal the lifecycle needs for cancelling
// active rides.
func (a Actor) Privileged() bool {
	return a.Role == RoleAdmin
}

// RideService is the caller the lifecycle expects: it loads a ride, asks the
// dispatcher for the handler matching the stored status, runs the
// transition, commits with the status precondition and then publishes.
type RideService struct {
	rides      repository.RideRepository
	riders     repository.RiderRepository
	drivers    repository.DriverRepository
	dispatcher *lifecycle.Dispatcher
	publisher  events.Publisher
}

func NewRideService(store *repository.Store, dispatcher *lifecycle.Dispatcher, publisher events.Publisher) *RideService {
	if publisher == nil {
		publisher = events.NewLogPublisher()
	}
	return &RideService{
		rides:      store.Rides,
		riders:     store.Riders,
		drivers:    store.Drivers,
		dispatcher: dispatcher,
		publisher:  publisher,
	}
}

// CreateRide creates a ride in the requested state and announces it.
func (s *RideService) CreateRide(ctx context.Context, req entities.NewRideRequest) (*entities.Ride, error) {
	activeRide, err := s.rides.GetActiveRideByRiderID(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}
	if activeRide != nil {
		return nil, ErrActiveRideExists
	}

	ride, err := s.dispatcher.InitialState().Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, fmt.Errorf("store ride: %w", err)
	}

	log.Printf("[RIDE] ride %s requested by rider %s for driver %s", ride.ID, ride.RiderID, ride.DriverID)
	s.publish(ctx, events.NewRideEvent(events.TypeRideCreated, ride))
	return ride, nil
}

// GetRide retrieves a ride by ID
func (s *RideService) GetRide(ctx context.Context, rideID string) (*entities.Ride, error) {
	return s.rides.GetByID(ctx, rideID)
}

// ListRidesForActor returns the rider's own rides or the driver's assigned rides.
func (s *RideService) ListRidesForActor(ctx context.Context, actor Actor) ([]*entities.Ride, error) {
	switch actor.Role {
	case RoleRider:
		return s.rides.GetByRiderID(ctx, actor.ID)
	case RoleDriver:
		return s.rides.GetByDriverID(ctx, actor.ID)
	default:
		return nil, ErrUnsupportedRole
	}
}

// AcceptRide lets the assigned driver take a requested ride.
func (s *RideService) AcceptRide(ctx context.Context, rideID, driverID string) (*entities.Ride, error) {
	return s.transition(ctx, rideID, lifecycle.ActionAccept, nil, func(h lifecycle.Handler) (*entities.Ride, error) {
		return h.Accept(ctx, rideID, driverID)
	})
}

// RejectRide lets the assigned driver decline a requested ride, cancelling it.
func (s *RideService) RejectRide(ctx context.Context, rideID, driverID string) (*entities.Ride, error) {
	return s.transition(ctx, rideID, lifecycle.ActionReject, nil, func(h lifecycle.Handler) (*entities.Ride, error) {
		return h.Reject(ctx, rideID, driverID)
	})
}

// StartRide moves an accepted ride to active. Drivers may only start their
// own rides; admins may start any.
func (s *RideService) StartRide(ctx context.Context, rideID string, actor Actor) (*entities.Ride, error) {
	return s.transition(ctx, rideID, lifecycle.ActionStart, driverOrAdmin(lifecycle.ActionStart, actor), func(h lifecycle.Handler) (*entities.Ride, error) {
		return h.Start(ctx, rideID)
	})
}

// CompleteRide moves an active ride to completed, with the same actor rule
// as StartRide.
func (s *RideService) CompleteRide(ctx context.Context, rideID string, actor Actor) (*entities.Ride, error) {
	return s.transition(ctx, rideID, lifecycle.ActionComplete, driverOrAdmin(lifecycle.ActionComplete, actor), func(h lifecycle.Handler) (*entities.Ride, error) {
		return h.Complete(ctx, rideID)
	})
}

// CancelRide cancels a ride on behalf of any actor; only admins count as
// privileged.
func (s *RideService) CancelRide(ctx context.Context, rideID string, actor Actor) (*entities.Ride, error) {
	return s.transition(ctx, rideID, lifecycle.ActionCancel, nil, func(h lifecycle.Handler) (*entities.Ride, error) {
		return h.Cancel(ctx, rideID, actor.Privileged())
	})
}

// RegisterRider stores a rider, generating an id when none is given.
func (s *RideService) RegisterRider(ctx context.Context, rider *entities.Rider) (*entities.Rider, error) {
	if strings.TrimSpace(rider.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidParty)
	}
	if rider.ID == "" {
		rider.ID = utils.GenerateID()
	}
	if rider.CreatedAt.IsZero() {
		rider.CreatedAt = time.Now().UTC()
	}
	if err := s.riders.Create(ctx, rider); err != nil {
		return nil, err
	}
	return rider, nil
}

// RegisterDriver stores a driver, generating an id when none is given.
func (s *RideService) RegisterDriver(ctx context.Context, driver *entities.Driver) (*entities.Driver, error) {
	if strings.TrimSpace(driver.Name) == "" || strings.TrimSpace(driver.VehicleID) == "" {
		return nil, fmt.Errorf("%w: name and vehicle_id are required", ErrInvalidParty)
	}
	if driver.ID == "" {
		driver.ID = utils.GenerateID()
	}
	if driver.CreatedAt.IsZero() {
		driver.CreatedAt = time.Now().UTC()
	}
	if err := s.drivers.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// transition is the read-validate-write unit shared by every non-create
// action. The lifecycle handler validates the state before the actor check
// runs. A storage conflict means another transition committed between our
// read and our write; it is reported as a wrong-state rejection and never
// retried here.
func (s *RideService) transition(
	ctx context.Context,
	rideID string,
	action lifecycle.Action,
	authorize func(*entities.Ride) error,
	apply func(lifecycle.Handler) (*entities.Ride, error),
) (*entities.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	handler, err := s.dispatcher.ResolveRide(ride)
	if err != nil {
		log.Printf("[RIDE] ride %s has unusable status %q: %v", rideID, ride.Status, err)
		return nil, err
	}

	updated, err := apply(handler)
	if err != nil {
		return nil, err
	}

	// The state check comes first, so an action on a finished ride reads as
	// wrong-state for every caller. Nothing is stored until after this.
	if authorize != nil {
		if err := authorize(ride); err != nil {
			return nil, err
		}
	}

	expected := handler.Status()
	if err := s.rides.UpdateIfStatus(ctx, updated, expected); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			current := expected
			if latest, getErr := s.rides.GetByID(ctx, rideID); getErr == nil {
				current = latest.Status
			}
			log.Printf("[RIDE] %s on ride %s lost a race: status is now %s", action, rideID, current)
			return nil, lifecycle.NewTransitionError(action, current, "status changed concurrently")
		}
		return nil, fmt.Errorf("commit ride %s: %w", rideID, err)
	}

	log.Printf("[RIDE] ride %s: %s -> %s (%s)", rideID, expected, updated.Status, action)
	s.publish(ctx, events.NewRideEvent(events.TypeForStatus(updated.Status), updated))
	return updated, nil
}

// publish runs after the commit. The ride has already changed, so a broker
// failure is logged rather than returned to the caller.
func (s *RideService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("[RIDE] failed to publish %s for ride %s: %v", event.Type, event.RideID, err)
	}
}

func driverOrAdmin(action lifecycle.Action, actor Actor) func(*entities.Ride) error {
	return func(ride *entities.Ride) error {
		switch {
		case actor.Role == RoleAdmin:
			return nil
		case actor.Role == RoleDriver && actor.ID == ride.DriverID:
			return nil
		}
		return &lifecycle.TransitionError{
			Action: action,
			Status: ride.Status,
			Cause:  lifecycle.ErrNotAuthorized,
			Detail: fmt.Sprintf("%s %q may not %s ride %s", actor.Role, actor.ID, action, ride.ID),
		}
	}
}
