package memory

import (
	"context"
	"sync"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
)

type RiderRepository struct {
	mu     sync.RWMutex
	riders map[string]*entities.Rider
}

func NewRiderRepository() *RiderRepository {
	return &RiderRepository{
		riders: make(map[string]*entities.Rider),
	}
}

func (r *RiderRepository) Create(ctx context.Context, rider *entities.Rider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.riders[rider.ID]; exists {
		return repository.ErrAlreadyExists
	}
	stored := *rider
	r.riders[rider.ID] = &stored
	return nil
}

func (r *RiderRepository) GetByID(ctx context.Context, id string) (*entities.Rider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rider, exists := r.riders[id]
	if !exists {
		return nil, repository.ErrRiderNotFound
	}
	out := *rider
	return &out, nil
}
