// Package repository declares the storage collaborator used by the ride
// lifecycle and the service layer. Backends live in sub-packages: memory,
// postgres and sqlite.
package repository

import (
	"context"
	"errors"

	"ridehail/internal/domain/entities"
)

var (
	ErrRideNotFound   = errors.New("ride not found")
	ErrRiderNotFound  = errors.New("rider not found")
	ErrDriverNotFound = errors.New("driver not found")
	ErrAlreadyExists  = errors.New("record already exists")

	// ErrStatusConflict means the stored ride no longer has the status the
	// caller read before mutating it: another transition committed first.
	ErrStatusConflict = errors.New("ride status changed concurrently")
)

type RiderRepository interface {
	Create(ctx context.Context, rider *entities.Rider) error
	GetByID(ctx context.Context, id string) (*entities.Rider, error)
}

type DriverRepository interface {
	Create(ctx context.Context, driver *entities.Driver) error
	GetByID(ctx context.Context, id string) (*entities.Driver, error)
}

// RideRepository returns rides the caller owns: mutating a returned ride has
// no effect on storage until UpdateIfStatus commits it.
type RideRepository interface {
	Create(ctx context.Context, ride *entities.Ride) error
	GetByID(ctx context.Context, id string) (*entities.Ride, error)

	// UpdateIfStatus writes the ride's mutable fields (status, timestamps)
	// only if the stored status still equals expected. The check and the
	// write are one atomic unit.
	UpdateIfStatus(ctx context.Context, ride *entities.Ride, expected entities.RideStatus) error

	GetByRiderID(ctx context.Context, riderID string) ([]*entities.Ride, error)
	GetByDriverID(ctx context.Context, driverID string) ([]*entities.Ride, error)

	// GetActiveRideByRiderID returns the rider's non-terminal ride, or
	// (nil, nil) when there is none.
	GetActiveRideByRiderID(ctx context.Context, riderID string) (*entities.Ride, error)
}

// Store bundles the three repositories of one backend together with the
// function that releases its resources.
type Store struct {
	Rides   RideRepository
	Riders  RiderRepository
	Drivers DriverRepository
	Close   func() error
}
