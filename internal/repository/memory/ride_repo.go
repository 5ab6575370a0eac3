package memory

import (
	"context"
	"sort"
	"sync"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
)

// RideRepository stores rides in memory. It includes query methods for finding
// rides by rider or driver, and for checking if a rider has an active ride
// (to prevent double-booking).
//
// Every read hands out a clone and every write stores a clone. Without that,
// two goroutines transitioning the same ride would be mutating one shared
// struct and the status precondition in UpdateIfStatus would be meaningless.
type RideRepository struct {
	mu    sync.RWMutex
	rides map[string]*entities.Ride
}

func NewRideRepository() *RideRepository {
	return &RideRepository{
		rides: make(map[string]*entities.Ride),
	}
}

func (r *RideRepository) Create(ctx context.Context, ride *entities.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rides[ride.ID]; exists {
		return repository.ErrAlreadyExists
	}
	r.rides[ride.ID] = ride.Clone()
	return nil
}

func (r *RideRepository) GetByID(ctx context.Context, id string) (*entities.Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ride, exists := r.rides[id]
	if !exists {
		return nil, repository.ErrRideNotFound
	}
	return ride.Clone(), nil
}

// UpdateIfStatus is the in-memory equivalent of
// `UPDATE rides SET ... WHERE id = ? AND status = ?`. Holding the write lock
// across the comparison and the store makes the pair atomic.
func (r *RideRepository) UpdateIfStatus(ctx context.Context, ride *entities.Ride, expected entities.RideStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.rides[ride.ID]
	if !exists {
		return repository.ErrRideNotFound
	}
	current, err := entities.ParseRideStatus(string(stored.Status))
	if err != nil || current != expected {
		return repository.ErrStatusConflict
	}
	r.rides[ride.ID] = ride.Clone()
	return nil
}

// GetByRiderID returns all rides for a given rider, oldest first.
// Scans every ride; an index by rider would replace this outside the in-memory store.
func (r *RideRepository) GetByRiderID(ctx context.Context, riderID string) ([]*entities.Ride, error) {
	return r.filter(func(ride *entities.Ride) bool { return ride.RiderID == riderID }), nil
}

// GetByDriverID returns all rides for a given driver, oldest first.
func (r *RideRepository) GetByDriverID(ctx context.Context, driverID string) ([]*entities.Ride, error) {
	return r.filter(func(ride *entities.Ride) bool { return ride.DriverID == driverID }), nil
}

// GetActiveRideByRiderID returns a ride that is currently in progress for
// a given rider, or nil if none exists. A ride is "active" here if it's in any
// non-terminal state.
//
// Go Learning Note — Multiple Return Values:
// Returning (nil, nil) means "no active ride found, and that's not an error."
// GetByID reports a missing ride as an error, but having no active ride is a
// normal outcome for this lookup.
func (r *RideRepository) GetActiveRideByRiderID(ctx context.Context, riderID string) (*entities.Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ride := range r.rides {
		if ride.RiderID == riderID && !ride.Status.IsTerminal() {
			return ride.Clone(), nil
		}
	}
	return nil, nil
}

func (r *RideRepository) filter(keep func(*entities.Ride) bool) []*entities.Ride {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rides []*entities.Ride
	for _, ride := range r.rides {
		if keep(ride) {
			rides = append(rides, ride.Clone())
		}
	}
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].RequestedAt.Before(rides[j].RequestedAt)
	})
	return rides
}
