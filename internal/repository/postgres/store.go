// Package postgres is the PostgreSQL backend for the ride repositories,
// built on a pgx connection pool.
//
// Status transitions are committed with a single conditional UPDATE
// (`WHERE id = $1 AND status = $2`); zero affected rows means either the ride
// is gone or another transition got there first.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the SQLSTATE for duplicate primary keys.
const uniqueViolation = "23505"

// PoolConfig carries the pool sizing knobs.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPool opens a pool for dsn and pings it before returning.
func NewPool(ctx context.Context, dsn string, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Open connects, migrates and returns a Store whose Close releases the pool.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*repository.Store, error) {
	pool, err := NewPool(ctx, dsn, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Printf("[STORAGE] connected to postgres")
	return NewStore(pool), nil
}

// NewStore wraps an existing pool. The caller keeps ownership of the schema.
func NewStore(pool *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Rides:   &RideRepository{pool: pool},
		Riders:  &RiderRepository{pool: pool},
		Drivers: &DriverRepository{pool: pool},
		Close: func() error {
			pool.Close()
			return nil
		},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type RiderRepository struct {
	pool *pgxpool.Pool
}

func (r *RiderRepository) Create(ctx context.Context, rider *entities.Rider) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO riders (id, name, email, phone, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rider.ID, rider.Name, rider.Email, rider.Phone, rider.CreatedAt)
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
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, created_at FROM riders WHERE id = $1`, id,
	).Scan(&rider.ID, &rider.Name, &rider.Email, &rider.Phone, &rider.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrRiderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query rider: %w", err)
	}
	return &rider, nil
}

type DriverRepository struct {
	pool *pgxpool.Pool
}

func (r *DriverRepository) Create(ctx context.Context, driver *entities.Driver) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO drivers (id, name, email, phone, vehicle_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		driver.ID, driver.Name, driver.Email, driver.Phone, driver.VehicleID, driver.CreatedAt)
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
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, vehicle_id, created_at FROM drivers WHERE id = $1`, id,
	).Scan(&driver.ID, &driver.Name, &driver.Email, &driver.Phone, &driver.VehicleID, &driver.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query driver: %w", err)
	}
	return &driver, nil
}
