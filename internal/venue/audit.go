package venue

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/sanksan/tics/internal/seats"
)

// Stats is a point-in-time view of the venue's seat accounting.
type Stats struct {
	Capacity    int `json:"capacity"`
	Available   int `json:"available"`
	Held        int `json:"held"`
	Reserved    int `json:"reserved"`
	ActiveHolds int `json:"active_holds"`
	FreeBlocks  int `json:"free_blocks"`
}

func (v *Venue) Stats() Stats {
	holds := v.holds.Holds()
	held := 0
	for _, h := range holds {
		held += h.NumSeats()
	}

	v.reservedMu.Lock()
	reserved := v.numReserved
	v.reservedMu.Unlock()

	return Stats{
		Capacity:    v.Capacity(),
		Available:   v.NumSeatsAvailable(),
		Held:        held,
		Reserved:    reserved,
		ActiveHolds: len(holds),
		FreeBlocks:  len(v.pool.Blocks()),
	}
}

// Audit checks that every seat is exactly one of free, held or reserved and
// that the available counter matches. Only meaningful when no operation is
// in flight.
func (v *Venue) Audit() error {
	capacity := uint(v.Capacity())
	seen := bitset.New(capacity)

	free := v.pool.Blocks()
	if err := v.account(seen, "free", free); err != nil {
		return err
	}

	held := 0
	for _, h := range v.holds.Holds() {
		if err := v.account(seen, fmt.Sprintf("held by %d", h.ID), h.Blocks); err != nil {
			return err
		}
		held += h.NumSeats()
	}

	v.reservedMu.Lock()
	reserved := v.reserved.Clone()
	numReserved := v.numReserved
	v.reservedMu.Unlock()

	if n := seen.IntersectionCardinality(reserved); n > 0 {
		return fmt.Errorf("%d reserved seats are also free or held", n)
	}
	if reserved.Count() != uint(numReserved) {
		return fmt.Errorf("reserved seat count %d does not match %d reserved positions", numReserved, reserved.Count())
	}
	seen.InPlaceUnion(reserved)

	if seen.Count() != capacity {
		return fmt.Errorf("%d of %d seats are unaccounted for", capacity-seen.Count(), capacity)
	}

	want := v.Capacity() - held - numReserved
	if got := v.NumSeatsAvailable(); got != want {
		return fmt.Errorf("available counter is %d, expected %d (capacity %d, held %d, reserved %d)",
			got, want, v.Capacity(), held, numReserved)
	}
	if got := seats.Total(free); got != want {
		return fmt.Errorf("free pool holds %d seats, expected %d", got, want)
	}
	return nil
}

func (v *Venue) account(seen *bitset.BitSet, state string, blocks []seats.SeatBlock) error {
	for _, b := range blocks {
		if b.Length <= 0 || b.Row < 1 || b.Row > v.cfg.Rows || b.Col < 1 || b.End()-1 > v.cfg.Columns {
			return fmt.Errorf("%s block %+v is outside the venue", state, b)
		}
		for col := b.Col; col < b.End(); col++ {
			i := v.seatIndex(b.Row, col)
			if seen.Test(i) {
				return fmt.Errorf("seat (%d,%d) %s is already accounted for", b.Row, col, state)
			}
			seen.Set(i)
		}
	}
	return nil
}
