package venue

import (
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/sanksan/tics/internal/seats"
)

// bucket holds the free blocks of one length in FIFO order.
type bucket struct {
	length int
	blocks []seats.SeatBlock
}

func bucketLess(a, b *bucket) bool {
	return a.length < b.length
}

// FreePool indexes unallocated seat blocks by length. Buckets are kept in a
// btree ordered by length and are dropped as soon as they empty, so the first
// bucket found by a range query is always non-empty.
type FreePool struct {
	mu      sync.Mutex
	buckets *btree.BTreeG[*bucket]
	free    int
}

// NewFreePool creates a pool with one full-width block per row.
func NewFreePool(rows, columns int) *FreePool {
	p := &FreePool{
		buckets: btree.NewG(8, bucketLess),
	}
	for row := 1; row <= rows; row++ {
		p.pushBack(seats.SeatBlock{Row: row, Col: 1, Length: columns})
	}
	return p
}

// Acquire removes and returns blocks summing exactly to n seats.
//
// The policy tries, in order: the head of the bucket of length n; a split of
// the head of the smallest larger bucket; a composition of whole blocks taken
// from buckets of decreasing length starting at n-1, carving the last one if
// it overshoots. When the seats cannot be assembled the pool is restored to
// its prior state and ErrNotAvailable is returned.
func (p *FreePool) Acquire(n int) ([]seats.SeatBlock, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: seat count must be positive, got %d", ErrInvalidInput, n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Exact fit
	if bk, ok := p.buckets.Get(&bucket{length: n}); ok {
		return []seats.SeatBlock{p.popFront(bk)}, nil
	}

	// Split the smallest larger block
	if bk := p.ceiling(n + 1); bk != nil {
		b := p.popFront(bk)
		p.pushBack(seats.SeatBlock{Row: b.Row, Col: b.Col + n, Length: b.Length - n})
		b.Length = n
		return []seats.SeatBlock{b}, nil
	}

	return p.compose(n)
}

// compose gathers n seats from buckets shorter than n. Caller holds mu.
func (p *FreePool) compose(n int) ([]seats.SeatBlock, error) {
	var taken []seats.SeatBlock
	rem := n

	for upper := n - 1; rem > 0 && upper > 0; {
		bk := p.floor(upper)
		if bk == nil {
			break
		}
		for rem > 0 && len(bk.blocks) > 0 {
			b := p.popFront(bk)
			if b.Length > rem {
				p.pushBack(seats.SeatBlock{Row: b.Row, Col: b.Col + rem, Length: b.Length - rem})
				b.Length = rem
			}
			taken = append(taken, b)
			rem -= b.Length
		}
		upper = bk.length - 1
	}

	if rem > 0 {
		// Only whole blocks were taken; put them back where they came from.
		for i := len(taken) - 1; i >= 0; i-- {
			p.pushFront(taken[i])
		}
		return nil, ErrNotAvailable
	}
	return taken, nil
}

// Release returns blocks to the pool as-is, each under its own length.
// Adjacent free blocks are not merged.
func (p *FreePool) Release(blocks []seats.SeatBlock) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range blocks {
		if b.Length <= 0 {
			continue
		}
		p.pushBack(b)
	}
}

// Free returns the number of free seats in the pool.
func (p *FreePool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.free
}

// Blocks returns a snapshot of the free blocks, by ascending length and FIFO
// order within a length.
func (p *FreePool) Blocks() []seats.SeatBlock {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []seats.SeatBlock
	p.buckets.Ascend(func(bk *bucket) bool {
		out = append(out, bk.blocks...)
		return true
	})
	return out
}

// ceiling returns the bucket with the smallest length >= length.
func (p *FreePool) ceiling(length int) *bucket {
	var found *bucket
	p.buckets.AscendGreaterOrEqual(&bucket{length: length}, func(bk *bucket) bool {
		found = bk
		return false
	})
	return found
}

// floor returns the bucket with the largest length <= length.
func (p *FreePool) floor(length int) *bucket {
	var found *bucket
	p.buckets.DescendLessOrEqual(&bucket{length: length}, func(bk *bucket) bool {
		found = bk
		return false
	})
	return found
}

func (p *FreePool) bucketFor(length int) *bucket {
	bk, ok := p.buckets.Get(&bucket{length: length})
	if !ok {
		bk = &bucket{length: length}
		p.buckets.ReplaceOrInsert(bk)
	}
	return bk
}

func (p *FreePool) pushBack(b seats.SeatBlock) {
	bk := p.bucketFor(b.Length)
	bk.blocks = append(bk.blocks, b)
	p.free += b.Length
}

func (p *FreePool) pushFront(b seats.SeatBlock) {
	bk := p.bucketFor(b.Length)
	bk.blocks = append([]seats.SeatBlock{b}, bk.blocks...)
	p.free += b.Length
}

// popFront removes the head of bk and drops bk from the index once empty.
func (p *FreePool) popFront(bk *bucket) seats.SeatBlock {
	b := bk.blocks[0]
	bk.blocks = bk.blocks[1:]
	if len(bk.blocks) == 0 {
		p.buckets.Delete(bk)
	}
	p.free -= b.Length
	return b
}
