package memory

import (
	"context"
	"sync"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
)

type DriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*entities.Driver
}

func NewDriverRepository() *DriverRepository {
	return &DriverRepository{
		drivers: make(map[string]*entities.Driver),
	}
}

func (r *DriverRepository) Create(ctx context.Context, driver *entities.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.drivers[driver.ID]; exists {
		return repository.ErrAlreadyExists
	}
	stored := *driver
	r.drivers[driver.ID] = &stored
	return nil
}

func (r *DriverRepository) GetByID(ctx context.Context, id string) (*entities.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	driver, exists := r.drivers[id]
	if !exists {
		return nil, repository.ErrDriverNotFound
	}
	out := *driver
	return &out, nil
}
