package venue

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/sanksan/tics/internal/seats"
)

// Hold is a time-bounded claim on seat blocks. A Hold is owned by the
// registry until it is reserved or reclaimed; its fields must not change
// after Insert.
type Hold struct {
	ID        int
	Customer  string
	Blocks    []seats.SeatBlock
	CreatedAt time.Time
	ExpiresAt time.Time

	seq uint64
}

// NumSeats returns the number of seats covered by the hold.
func (h *Hold) NumSeats() int {
	return seats.Total(h.Blocks)
}

// Expired reports whether the hold is past its expiration at now.
func (h *Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}

// holdLess orders holds by expiration, oldest insertion first on ties.
func holdLess(a, b *Hold) bool {
	if !a.ExpiresAt.Equal(b.ExpiresAt) {
		return a.ExpiresAt.Before(b.ExpiresAt)
	}
	return a.seq < b.seq
}

// HoldRegistry tracks active holds ordered by expiration with lookup by id.
type HoldRegistry struct {
	mu       sync.Mutex
	byExpiry *btree.BTreeG[*Hold]
	byID     map[int]*Hold
	seq      uint64
}

func NewHoldRegistry() *HoldRegistry {
	return &HoldRegistry{
		byExpiry: btree.NewG(16, holdLess),
		byID:     make(map[int]*Hold),
	}
}

// Insert registers h. Ids must be unique among live holds.
func (r *HoldRegistry) Insert(h *Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[h.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateHold, h.ID)
	}
	r.seq++
	h.seq = r.seq
	r.byID[h.ID] = h
	r.byExpiry.ReplaceOrInsert(h)
	return nil
}

// PeekEarliest returns the hold that expires first without removing it.
func (r *HoldRegistry) PeekEarliest() (*Hold, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byExpiry.Min()
}

// RemoveIfPresent removes and returns the hold with the given id. Exactly one
// of any number of concurrent callers (reservers or the reclaimer) gets it.
func (r *HoldRegistry) RemoveIfPresent(id int) (*Hold, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)
	r.byExpiry.Delete(h)
	return h, true
}

// DrainExpired pops every hold whose expiration is at or before now, earliest first.
func (r *HoldRegistry) DrainExpired(now time.Time) []*Hold {
	r.mu.Lock()
	defer r.mu.Unlock()

	var drained []*Hold
	for {
		h, ok := r.byExpiry.Min()
		if !ok || !h.Expired(now) {
			break
		}
		r.byExpiry.DeleteMin()
		delete(r.byID, h.ID)
		drained = append(drained, h)
	}
	return drained
}

// Len returns the number of active holds.
func (r *HoldRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Holds returns the active holds in expiration order.
func (r *HoldRegistry) Holds() []*Hold {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Hold, 0, len(r.byID))
	r.byExpiry.Ascend(func(h *Hold) bool {
		out = append(out, h)
		return true
	})
	return out
}
