package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
)

const rideColumns = `id, rider_id, driver_id, vehicle_id, pickup_location_id, dropoff_location_id,
	status, fare, distance_km, duration_mins, requested_at, started_at, completed_at, updated_at`

type RideRepository struct {
	pool *pgxpool.Pool
}

func (r *RideRepository) Create(ctx context.Context, ride *entities.Ride) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rides (`+rideColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		ride.ID, ride.RiderID, ride.DriverID, ride.VehicleID, ride.PickupLocationID, ride.DropoffLocationID,
		string(ride.Status), ride.Fare, ride.DistanceKm, ride.DurationMins,
		ride.RequestedAt, ride.StartedAt, ride.CompletedAt, ride.UpdatedAt,
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
	ride, err := scanRide(r.pool.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ride: %w", err)
	}
	return ride, nil
}

// UpdateIfStatus compares case-insensitively so that rows written by other
// tools with different casing still match.
func (r *RideRepository) UpdateIfStatus(ctx context.Context, ride *entities.Ride, expected entities.RideStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE rides
		SET status = $3, started_at = $4, completed_at = $5, updated_at = $6
		WHERE id = $1 AND lower(trim(status)) = $2`,
		ride.ID, string(expected), string(ride.Status), ride.StartedAt, ride.CompletedAt, ride.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update ride status: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, ride.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check ride: %w", err)
	}
	if !exists {
		return repository.ErrRideNotFound
	}
	return repository.ErrStatusConflict
}

func (r *RideRepository) GetByRiderID(ctx context.Context, riderID string) ([]*entities.Ride, error) {
	return r.query(ctx, `SELECT `+rideColumns+` FROM rides WHERE rider_id = $1 ORDER BY requested_at`, riderID)
}

func (r *RideRepository) GetByDriverID(ctx context.Context, driverID string) ([]*entities.Ride, error) {
	return r.query(ctx, `SELECT `+rideColumns+` FROM rides WHERE driver_id = $1 ORDER BY requested_at`, driverID)
}

func (r *RideRepository) GetActiveRideByRiderID(ctx context.Context, riderID string) (*entities.Ride, error) {
	ride, err := scanRide(r.pool.QueryRow(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE rider_id = $1 AND lower(trim(status)) NOT IN ('completed', 'cancelled')
		ORDER BY requested_at DESC
		LIMIT 1`, riderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active ride: %w", err)
	}
	return ride, nil
}

func (r *RideRepository) query(ctx context.Context, sql string, arg string) ([]*entities.Ride, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer rows.Close()

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

// scanRide reads the status verbatim; the lifecycle decides whether it is
// usable.
func scanRide(row pgx.Row) (*entities.Ride, error) {
	var ride entities.Ride
	var status string
	err := row.Scan(
		&ride.ID, &ride.RiderID, &ride.DriverID, &ride.VehicleID,
		&ride.PickupLocationID, &ride.DropoffLocationID,
		&status, &ride.Fare, &ride.DistanceKm, &ride.DurationMins,
		&ride.RequestedAt, &ride.StartedAt, &ride.CompletedAt, &ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ride.Status = entities.RideStatus(status)
	return &ride, nil
}
