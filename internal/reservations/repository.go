package reservations

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotFound  = errors.New("reservation not found")
	ErrDuplicate = errors.New("reservation already exists")
)

// Repository stores reservation records.
type Repository interface {
	Save(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context) ([]*Reservation, error)
	Count(ctx context.Context) (int, error)
}

type memoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*Reservation
	order []string
}

// NewMemoryRepository returns a process-local repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID: make(map[string]*Reservation),
	}
}

func (m *memoryRepository) Save(_ context.Context, r *Reservation) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("reservation id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}
	m.byID[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *memoryRepository) Get(_ context.Context, id string) (*Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// List returns reservations in the order they were saved.
func (m *memoryRepository) List(_ context.Context) ([]*Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Reservation, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *memoryRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID), nil
}
