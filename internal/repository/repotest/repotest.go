// Package repotest holds the behaviour every repository backend must share.
// Backend packages call Run from their own tests with a constructor for a
// fresh, empty store.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
)

// Run exercises a backend. newStore must return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) *repository.Store) {
	t.Helper()

	t.Run("RiderAndDriver", func(t *testing.T) { testParties(t, newStore(t)) })
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("UpdateIfStatus", func(t *testing.T) { testUpdateIfStatus(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("Queries", func(t *testing.T) { testQueries(t, newStore(t)) })
}

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func seedParties(t *testing.T, store *repository.Store) {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"rider-1", "rider-2"} {
		rider := entities.NewRider(id, "Rider "+id, id+"@example.com", "555-0100")
		rider.CreatedAt = base
		if err := store.Riders.Create(ctx, rider); err != nil {
			t.Fatalf("create rider %s: %v", id, err)
		}
	}
	driver := entities.NewDriver("driver-1", "Driver One", "d1@example.com", "555-0200", "vehicle-1")
	driver.CreatedAt = base
	if err := store.Drivers.Create(ctx, driver); err != nil {
		t.Fatalf("create driver: %v", err)
	}
}

func newRide(id, riderID string, at time.Time) *entities.Ride {
	return entities.NewRide(id, entities.NewRideRequest{
		RiderID:           riderID,
		DriverID:          "driver-1",
		VehicleID:         "vehicle-1",
		PickupLocationID:  "loc-a",
		DropoffLocationID: "loc-b",
	}, at)
}

func testParties(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedParties(t, store)

	rider, err := store.Riders.GetByID(ctx, "rider-1")
	if err != nil || rider.Name != "Rider rider-1" {
		t.Errorf("GetByID rider = %+v, %v", rider, err)
	}
	if _, err := store.Riders.GetByID(ctx, "nobody"); !errors.Is(err, repository.ErrRiderNotFound) {
		t.Errorf("Expected ErrRiderNotFound, got %v", err)
	}
	if err := store.Riders.Create(ctx, entities.NewRider("rider-1", "Again", "", "")); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	driver, err := store.Drivers.GetByID(ctx, "driver-1")
	if err != nil || driver.VehicleID != "vehicle-1" {
		t.Errorf("GetByID driver = %+v, %v", driver, err)
	}
	if _, err := store.Drivers.GetByID(ctx, "nobody"); !errors.Is(err, repository.ErrDriverNotFound) {
		t.Errorf("Expected ErrDriverNotFound, got %v", err)
	}
}

func testCreateAndGet(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedParties(t, store)

	ride := newRide("ride-1", "rider-1", base)
	if err := store.Rides.Create(ctx, ride); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Rides.Create(ctx, ride); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	got, err := store.Rides.GetByID(ctx, "ride-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != entities.RideStatusRequested || !got.RequestedAt.Equal(base) {
		t.Errorf("Unexpected ride: %+v", got)
	}
	if got.StartedAt != nil || got.CompletedAt != nil {
		t.Error("Expected no started/completed timestamps")
	}

	got.Status = entities.RideStatusCancelled
	again, _ := store.Rides.GetByID(ctx, "ride-1")
	if again.Status != entities.RideStatusRequested {
		t.Error("Mutating a returned ride changed storage")
	}

	if _, err := store.Rides.GetByID(ctx, "ride-404"); !errors.Is(err, repository.ErrRideNotFound) {
		t.Errorf("Expected ErrRideNotFound, got %v", err)
	}
}

func testUpdateIfStatus(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedParties(t, store)
	store.Rides.Create(ctx, newRide("ride-1", "rider-1", base))

	ride, _ := store.Rides.GetByID(ctx, "ride-1")
	started := base.Add(5 * time.Minute)
	ride.Status = entities.RideStatusActive
	ride.StartedAt = &started
	ride.UpdatedAt = started

	if err := store.Rides.UpdateIfStatus(ctx, ride, entities.RideStatusAccepted); !errors.Is(err, repository.ErrStatusConflict) {
		t.Errorf("Expected ErrStatusConflict for stale status, got %v", err)
	}
	if err := store.Rides.UpdateIfStatus(ctx, ride, entities.RideStatusRequested); err != nil {
		t.Fatalf("UpdateIfStatus: %v", err)
	}

	got, _ := store.Rides.GetByID(ctx, "ride-1")
	if got.Status != entities.RideStatusActive || got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("Update not stored: %+v", got)
	}

	missing := newRide("ride-404", "rider-1", base)
	if err := store.Rides.UpdateIfStatus(ctx, missing, entities.RideStatusRequested); !errors.Is(err, repository.ErrRideNotFound) {
		t.Errorf("Expected ErrRideNotFound, got %v", err)
	}
}

func testConcurrentUpdates(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedParties(t, store)
	store.Rides.Create(ctx, newRide("ride-1", "rider-1", base))

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ride, err := store.Rides.GetByID(ctx, "ride-1")
			if err != nil {
				t.Errorf("GetByID: %v", err)
				return
			}
			ride.Status = entities.RideStatusAccepted
			err = store.Rides.UpdateIfStatus(ctx, ride, entities.RideStatusRequested)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, repository.ErrStatusConflict) {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one committed update, got %d", wins)
	}
}

func testQueries(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedParties(t, store)

	first := newRide("ride-1", "rider-1", base)
	first.Status = entities.RideStatus("COMPLETED")
	second := newRide("ride-2", "rider-1", base.Add(time.Hour))
	third := newRide("ride-3", "rider-2", base.Add(2*time.Hour))
	for _, r := range []*entities.Ride{second, first, third} {
		if err := store.Rides.Create(ctx, r); err != nil {
			t.Fatalf("Create %s: %v", r.ID, err)
		}
	}

	byRider, err := store.Rides.GetByRiderID(ctx, "rider-1")
	if err != nil || len(byRider) != 2 {
		t.Fatalf("GetByRiderID = %d rides, %v", len(byRider), err)
	}
	if byRider[0].ID != "ride-1" || byRider[1].ID != "ride-2" {
		t.Errorf("Expected oldest first, got %s, %s", byRider[0].ID, byRider[1].ID)
	}

	byDriver, _ := store.Rides.GetByDriverID(ctx, "driver-1")
	if len(byDriver) != 3 {
		t.Errorf("Expected 3 rides for driver-1, got %d", len(byDriver))
	}

	active, err := store.Rides.GetActiveRideByRiderID(ctx, "rider-1")
	if err != nil || active == nil || active.ID != "ride-2" {
		t.Errorf("Expected ride-2 active, got %+v, %v", active, err)
	}

	none, err := store.Rides.GetActiveRideByRiderID(ctx, "rider-404")
	if err != nil || none != nil {
		t.Errorf("Expected (nil, nil), got %+v, %v", none, err)
	}

	// Terminal statuses written with other casing still end the ride.
	cancelled := second.Clone()
	cancelled.Status = entities.RideStatus("Cancelled")
	if err := store.Rides.UpdateIfStatus(ctx, cancelled, entities.RideStatusRequested); err != nil {
		t.Fatalf("UpdateIfStatus: %v", err)
	}
	active, err = store.Rides.GetActiveRideByRiderID(ctx, "rider-1")
	if err != nil || active != nil {
		t.Errorf("Expected no active ride once ride-2 is Cancelled, got %+v, %v", active, err)
	}
}
