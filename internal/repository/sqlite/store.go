// Package sqlite is a single-file backend for development and small
// deployments, using the pure-Go modernc.org/sqlite driver through
// database/sql.
//
// Timestamps are stored as fixed-width UTC text so that rows stay readable
// with the sqlite3 shell and sort lexically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS riders (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS drivers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	vehicle_id TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS rides (
	id                  TEXT PRIMARY KEY,
	rider_id            TEXT NOT NULL,
	driver_id           TEXT NOT NULL,
	vehicle_id          TEXT NOT NULL,
	pickup_location_id  TEXT NOT NULL,
	dropoff_location_id TEXT NOT NULL,
	status              TEXT NOT NULL,
	fare                REAL NOT NULL DEFAULT 0,
	distance_km         REAL NOT NULL DEFAULT 0,
	duration_mins       REAL NOT NULL DEFAULT 0,
	requested_at        TEXT NOT NULL,
	started_at          TEXT,
	completed_at        TEXT,
	updated_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rides_rider_id ON rides (rider_id, requested_at);
CREATE INDEX IF NOT EXISTS idx_rides_driver_id ON rides (driver_id, requested_at);
`

// Open creates (or reuses) the database at path and applies the schema.
// An empty path means "ridehail.db" in the working directory.
func Open(ctx context.Context, path string) (*repository.Store, error) {
	if path == "" {
		path = "ridehail.db"
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Printf("[STORAGE] opened sqlite database %s", path)

	return &repository.Store{
		Rides:   &RideRepository{db: db},
		Riders:  &RiderRepository{db: db},
		Drivers: &DriverRepository{db: db},
		Close:   db.Close,
	}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type RiderRepository struct {
	db *sql.DB
}

func (r *RiderRepository) Create(ctx context.Context, rider *entities.Rider) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO riders (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)`,
		rider.ID, rider.Name, rider.Email, rider.Phone, formatTime(rider.CreatedAt))
	if isUniqueViolation(err) {
		return repository.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert rider: %w", err)
	}
	return nil
}

func (r *RiderRepository) GetByID(ctx context.Context, id string) (*entities.Rider, error) {
	var rider entities.Rider
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, created_at FROM riders WHERE id = ?`, id,
	).Scan(&rider.ID, &rider.Name, &rider.Email, &rider.Phone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRiderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query rider: %w", err)
	}
	if rider.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("rider %s created_at: %w", id, err)
	}
	return &rider, nil
}

type DriverRepository struct {
	db *sql.DB
}

func (r *DriverRepository) Create(ctx context.Context, driver *entities.Driver) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drivers (id, name, email, phone, vehicle_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		driver.ID, driver.Name, driver.Email, driver.Phone, driver.VehicleID, formatTime(driver.CreatedAt))
	if isUniqueViolation(err) {
		return repository.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

func (r *DriverRepository) GetByID(ctx context.Context, id string) (*entities.Driver, error) {
	var driver entities.Driver
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, vehicle_id, created_at FROM drivers WHERE id = ?`, id,
	).Scan(&driver.ID, &driver.Name, &driver.Email, &driver.Phone, &driver.VehicleID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query driver: %w", err)
	}
	if driver.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("driver %s created_at: %w", id, err)
	}
	return &driver, nil
}
