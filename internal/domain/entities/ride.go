package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RideStatus represents the current lifecycle state of a ride.
//
// The lifecycle is:
//
//	Requested → Accepted → Active → Completed
//	    ↘           ↘         ↘
//	                Cancelled
//
// Completed and Cancelled are terminal. The transition rules themselves live
// in the lifecycle package; this file only owns the vocabulary.
//
// Go Learning Note — Closed Enumerations:
// A named string type plus a fixed const block is Go's closest thing to a
// sum type. The compiler won't stop someone from writing RideStatus("bogus"),
// so any value that crosses a trust boundary (the database, an HTTP body) goes
// through ParseRideStatus before the rest of the code relies on it.
type RideStatus string

const (
	RideStatusRequested RideStatus = "requested"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusActive    RideStatus = "active"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// ErrUnknownRideStatus is returned by ParseRideStatus for empty or
// unrecognized tokens.
var ErrUnknownRideStatus = errors.New("unknown ride status")

// ErrInvalidRideRequest is returned when a creation payload is missing one of
// its required identifiers.
var ErrInvalidRideRequest = errors.New("invalid ride request")

// RideStatuses lists every status in lifecycle order.
func RideStatuses() []RideStatus {
	return []RideStatus{
		RideStatusRequested,
		RideStatusAccepted,
		RideStatusActive,
		RideStatusCompleted,
		RideStatusCancelled,
	}
}

// ParseRideStatus normalizes a persisted or user-supplied token (trimming
// whitespace and lowercasing) and returns the matching status. The stored
// value's casing is not guaranteed by callers, so comparisons always go
// through here.
func ParseRideStatus(token string) (RideStatus, error) {
	normalized := RideStatus(strings.ToLower(strings.TrimSpace(token)))
	switch normalized {
	case RideStatusRequested,
		RideStatusAccepted,
		RideStatusActive,
		RideStatusCompleted,
		RideStatusCancelled:
		return normalized, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRideStatus, token)
}

// IsTerminal reports whether no transition can leave this status. Stored
// tokens such as "COMPLETED" count; unrecognized ones do not.
func (s RideStatus) IsTerminal() bool {
	normalized, err := ParseRideStatus(string(s))
	if err != nil {
		return false
	}
	return normalized == RideStatusCompleted || normalized == RideStatusCancelled
}

// Ride is the entity under state-machine control.
//
// StartedAt and CompletedAt are pointers so "never happened" is nil rather
// than the zero time. Fare, DistanceKm and DurationMins are filled in by
// collaborators outside the lifecycle and are never read by it.
type Ride struct {
	ID                string     `json:"id"`
	RiderID           string     `json:"rider_id"`
	DriverID          string     `json:"driver_id"`
	VehicleID         string     `json:"vehicle_id"`
	PickupLocationID  string     `json:"pickup_location_id"`
	DropoffLocationID string     `json:"dropoff_location_id"`
	Status            RideStatus `json:"status"`
	Fare              float64    `json:"fare,omitempty"`
	DistanceKm        float64    `json:"distance_km,omitempty"`
	DurationMins      float64    `json:"duration_mins,omitempty"`
	RequestedAt       time.Time  `json:"requested_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewRideRequest is the creation payload. Matching has already happened by
// the time a ride is created, so the driver, vehicle and both locations
// arrive resolved.
type NewRideRequest struct {
	RiderID           string `json:"rider_id"`
	DriverID          string `json:"driver_id"`
	VehicleID         string `json:"vehicle_id"`
	PickupLocationID  string `json:"pickup_location_id"`
	DropoffLocationID string `json:"dropoff_location_id"`
}

// Validate checks that every identifier is present.
func (r NewRideRequest) Validate() error {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(r.RiderID) == "" {
		missing = append(missing, "rider_id")
	}
	if strings.TrimSpace(r.DriverID) == "" {
		missing = append(missing, "driver_id")
	}
	if strings.TrimSpace(r.VehicleID) == "" {
		missing = append(missing, "vehicle_id")
	}
	if strings.TrimSpace(r.PickupLocationID) == "" {
		missing = append(missing, "pickup_location_id")
	}
	if strings.TrimSpace(r.DropoffLocationID) == "" {
		missing = append(missing, "dropoff_location_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRideRequest, strings.Join(missing, ", "))
	}
	return nil
}

// NewRide creates a Ride in the Requested state, stamped with requestedAt.
func NewRide(id string, req NewRideRequest, requestedAt time.Time) *Ride {
	return &Ride{
		ID:                id,
		RiderID:           req.RiderID,
		DriverID:          req.DriverID,
		VehicleID:         req.VehicleID,
		PickupLocationID:  req.PickupLocationID,
		DropoffLocationID: req.DropoffLocationID,
		Status:            RideStatusRequested,
		RequestedAt:       requestedAt,
		UpdatedAt:         requestedAt,
	}
}

// Clone returns a deep copy so the caller can mutate it without affecting
// whoever handed it out.
//
// Go Learning Note — Copying Structs with Pointers:
// `c := *r` copies every field, but pointer fields still point at the same
// time.Time values. Re-allocating them makes the copy fully independent.
func (r *Ride) Clone() *Ride {
	if r == nil {
		return nil
	}
	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
