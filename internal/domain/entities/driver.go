// Package entities defines the core domain models for the ride-hailing
// backend. These structs represent the business concepts (Ride, Rider,
// Driver) and live in the innermost layer of the architecture. They have no
// dependencies on databases, HTTP, or messaging.
//
// Go Learning Note — "internal/" directory:
// Packages under internal/ cannot be imported by code outside this module. Go
// enforces this at the compiler level. This is how Go provides encapsulation
// at the package level: it prevents external code from depending on your
// internal implementation details.
package entities

import "time"

// Driver is read by the lifecycle to confirm the driver on a new ride exists.
// Availability and location tracking belong to the matching subsystem, which
// is outside this service.
type Driver struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	VehicleID string    `json:"vehicle_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDriver creates a Driver stamped with the current time.
func NewDriver(id, name, email, phone, vehicleID string) *Driver {
	return &Driver{
		ID:        id,
		Name:      name,
		Email:     email,
		Phone:     phone,
		VehicleID: vehicleID,
		CreatedAt: time.Now().UTC(),
	}
}
