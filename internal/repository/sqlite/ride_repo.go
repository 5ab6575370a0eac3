package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
)

const rideColumns = `id, rider_id, driver_id, vehicle_id, pickup_location_id, dropoff_location_id,
	status, fare, distance_km, duration_mins, requested_at, started_at, completed_at, updated_at`

type RideRepository struct {
	db *sql.DB
}

func (r *RideRepository) Create(ctx context.Context, ride *entities.Ride) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rides (`+rideColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ride.ID, ride.RiderID, ride.DriverID, ride.VehicleID, ride.PickupLocationID, ride.DropoffLocationID,
		string(ride.Status), ride.Fare, ride.DistanceKm, ride.DurationMins,
		formatTime(ride.RequestedAt), formatNullTime(ride.StartedAt), formatNullTime(ride.CompletedAt),
		formatTime(ride.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return repository.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

func (r *RideRepository) GetByID(ctx context.Context, id string) (*entities.Ride, error) {
	ride, err := scanRide(r.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ride: %w", err)
	}
	return ride, nil
}

func (r *RideRepository) UpdateIfStatus(ctx context.Context, ride *entities.Ride, expected entities.RideStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE rides
		SET status = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND lower(trim(status)) = ?`,
		string(ride.Status), formatNullTime(ride.StartedAt), formatNullTime(ride.CompletedAt), formatTime(ride.UpdatedAt),
		ride.ID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("update ride status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM rides WHERE id = ?`, ride.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check ride: %w", err)
	}
	if exists == 0 {
		return repository.ErrRideNotFound
	}
	return repository.ErrStatusConflict
}

func (r *RideRepository) GetByRiderID(ctx context.Context, riderID string) ([]*entities.Ride, error) {
	return r.query(ctx, `SELECT `+rideColumns+` FROM rides WHERE rider_id = ? ORDER BY requested_at`, riderID)
}

func (r *RideRepository) GetByDriverID(ctx context.Context, driverID string) ([]*entities.Ride, error) {
	return r.query(ctx, `SELECT `+rideColumns+` FROM rides WHERE driver_id = ? ORDER BY requested_at`, driverID)
}

func (r *RideRepository) GetActiveRideByRiderID(ctx context.Context, riderID string) (*entities.Ride, error) {
	ride, err := scanRide(r.db.QueryRowContext(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE rider_id = ? AND lower(trim(status)) NOT IN ('completed', 'cancelled')
		ORDER BY requested_at DESC
		LIMIT 1`, riderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active ride: %w", err)
	}
	return ride, nil
}

func (r *RideRepository) query(ctx context.Context, query string, arg string) ([]*entities.Ride, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rides []*entities.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRide(row scanner) (*entities.Ride, error) {
	var (
		ride                   entities.Ride
		status                 string
		requestedAt, updatedAt string
		startedAt, completedAt sql.NullString
	)
	err := row.Scan(
		&ride.ID, &ride.RiderID, &ride.DriverID, &ride.VehicleID,
		&ride.PickupLocationID, &ride.DropoffLocationID,
		&status, &ride.Fare, &ride.DistanceKm, &ride.DurationMins,
		&requestedAt, &startedAt, &completedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	ride.Status = entities.RideStatus(status)

	if ride.RequestedAt, err = parseTime(requestedAt); err != nil {
		return nil, fmt.Errorf("requested_at: %w", err)
	}
	if ride.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	if ride.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, fmt.Errorf("started_at: %w", err)
	}
	if ride.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("completed_at: %w", err)
	}
	return &ride, nil
}
