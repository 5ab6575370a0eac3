// Package memory provides in-process repositories backed by maps guarded by
// sync.RWMutex. It is the default backend and the one the tests use.
package memory

import "ridehail/internal/repository"

// NewStore returns a fresh set of empty in-memory repositories.
func NewStore() *repository.Store {
	return &repository.Store{
		Rides:   NewRideRepository(),
		Riders:  NewRiderRepository(),
		Drivers: NewDriverRepository(),
		Close:   func() error { return nil },
	}
}
