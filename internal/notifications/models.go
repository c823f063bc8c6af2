package notifications

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sanksan/tics/internal/seats"
)

// EventType names a hold lifecycle transition.
type EventType string

const (
	EventTypeHoldCreated   EventType = "HOLD_CREATED"
	EventTypeHoldExpired   EventType = "HOLD_EXPIRED"
	EventTypeSeatsReserved EventType = "SEATS_RESERVED"
)

// VenueEvent is published whenever a hold is created, expires or is reserved.
type VenueEvent struct {
	ID            uuid.UUID        `json:"id"`
	Type          EventType        `json:"type"`
	HoldID        int              `json:"hold_id"`
	ReservationID string           `json:"reservation_id,omitempty"`
	CustomerEmail string           `json:"customer_email"`
	NumSeats      int              `json:"num_seats"`
	Seats         []seats.SeatInfo `json:"seats"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NewVenueEvent builds an event for the given hold blocks.
func NewVenueEvent(eventType EventType, holdID int, customerEmail string, blocks []seats.SeatBlock, at time.Time) *VenueEvent {
	return &VenueEvent{
		ID:            uuid.New(),
		Type:          eventType,
		HoldID:        holdID,
		CustomerEmail: customerEmail,
		NumSeats:      seats.Total(blocks),
		Seats:         seats.Expand(blocks),
		OccurredAt:    at,
	}
}

// WithReservation sets the reservation id
func (e *VenueEvent) WithReservation(reservationID string) *VenueEvent {
	e.ReservationID = reservationID
	return e
}

// WithExpiry sets the hold expiration
func (e *VenueEvent) WithExpiry(expiresAt time.Time) *VenueEvent {
	e.ExpiresAt = &expiresAt
	return e
}

// ToJSON converts event to JSON
func (e *VenueEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates event from JSON
func FromJSON(data []byte) (*VenueEvent, error) {
	var e VenueEvent
	err := json.Unmarshal(data, &e)
	return &e, err
}

// GetPartitionKey keeps every event of one customer on one partition.
func (e *VenueEvent) GetPartitionKey() string {
	if e.CustomerEmail != "" {
		return e.CustomerEmail
	}
	return "hold-" + strconv.Itoa(e.HoldID)
}
