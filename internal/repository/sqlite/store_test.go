package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
	"ridehail/internal/repository/repotest"
)

func openMemory(t *testing.T) *repository.Store {
	t.Helper()
	store, err := Open(context.Background(), MemoryPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	repotest.Run(t, openMemory)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "rides.db")

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Riders.Create(ctx, entities.NewRider("rider-1", "Rider One", "", "")); err != nil {
		t.Fatalf("Create rider: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Riders.GetByID(ctx, "rider-1"); err != nil {
		t.Errorf("Expected rider after reopen, got %v", err)
	}
}

func TestSQLiteStore_StatusStoredVerbatim(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	ride := entities.NewRide("ride-1", entities.NewRideRequest{
		RiderID: "rider-1", DriverID: "driver-1", VehicleID: "v", PickupLocationID: "a", DropoffLocationID: "b",
	}, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	ride.Status = "Accepted"
	if err := store.Rides.Create(ctx, ride); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := store.Rides.GetByID(ctx, "ride-1")
	if got.Status != "Accepted" {
		t.Errorf("Expected status to round-trip verbatim, got %q", got.Status)
	}

	got.Status = entities.RideStatusActive
	if err := store.Rides.UpdateIfStatus(ctx, got, entities.RideStatusAccepted); err != nil {
		t.Errorf("Expected case-insensitive status match, got %v", err)
	}

	corrupt := entities.NewRide("ride-2", entities.NewRideRequest{RiderID: "rider-1"}, got.RequestedAt)
	corrupt.Status = "teleported"
	store.Rides.Create(ctx, corrupt)
	corrupt.Status = entities.RideStatusCancelled
	if err := store.Rides.UpdateIfStatus(ctx, corrupt, entities.RideStatusRequested); !errors.Is(err, repository.ErrStatusConflict) {
		t.Errorf("Expected ErrStatusConflict for unknown stored status, got %v", err)
	}
}
