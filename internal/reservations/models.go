package reservations

import (
	"time"

	"github.com/sanksan/tics/internal/seats"
)

// Reservation is the permanent record of a converted hold.
type Reservation struct {
	ID            string            `json:"id"`
	HoldID        int               `json:"hold_id"`
	CustomerEmail string            `json:"customer_email"`
	Blocks        []seats.SeatBlock `json:"blocks"`
	ReservedAt    time.Time         `json:"reserved_at"`
}

// NumSeats returns the number of reserved seats.
func (r *Reservation) NumSeats() int {
	return seats.Total(r.Blocks)
}

// Seats enumerates the reserved seats in block order.
func (r *Reservation) Seats() []seats.SeatInfo {
	return seats.Expand(r.Blocks)
}
