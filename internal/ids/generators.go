// Package ids provides hold and reservation identifier generators.
package ids

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// Sequence hands out monotonically increasing hold ids starting after start.
type Sequence struct {
	last atomic.Int64
}

func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.last.Store(start)
	return s
}

func (s *Sequence) NextHoldID(_ context.Context) (int, error) {
	return int(s.last.Add(1)), nil
}

// UUID generates random reservation ids.
type UUID struct{}

func (UUID) NextReservationID(_ context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
