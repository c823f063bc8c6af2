package seats

import (
	"encoding/json"
	"fmt"
	"time"
)

// SeatBlock is a contiguous run of Length seats in Row starting at Col.
// Rows and columns are 1-based.
type SeatBlock struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Length int `json:"length"`
}

// SeatInfo identifies a single seat.
type SeatInfo struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s SeatInfo) String() string {
	return fmt.Sprintf("SeatInfo{row=%d, col=%d}", s.Row, s.Col)
}

// Seats expands the block into individual seats, columns ascending.
func (b SeatBlock) Seats() []SeatInfo {
	out := make([]SeatInfo, 0, b.Length)
	for i := 0; i < b.Length; i++ {
		out = append(out, SeatInfo{Row: b.Row, Col: b.Col + i})
	}
	return out
}

// End returns the column just past the block.
func (b SeatBlock) End() int {
	return b.Col + b.Length
}

// Expand enumerates the seats of blocks in block order.
func Expand(blocks []SeatBlock) []SeatInfo {
	out := make([]SeatInfo, 0, Total(blocks))
	for _, b := range blocks {
		out = append(out, b.Seats()...)
	}
	return out
}

// Total returns the number of seats covered by blocks.
func Total(blocks []SeatBlock) int {
	n := 0
	for _, b := range blocks {
		n += b.Length
	}
	return n
}

// Error codes carried in-band on a SeatHold
const (
	ErrorCodeInvalidInput = "INVALID_INPUT"
	ErrorCodeNotAvailable = "NOT_AVAILABLE"
	ErrorCodeInternal     = "INTERNAL_ERROR"
	ErrorCodeRateLimited  = "RATE_LIMITED"
)

// ErrorInfo describes why a hold request produced no hold.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SeatHold is the result of a hold request. Exactly one of Seats or Error is set.
type SeatHold struct {
	HoldID        int        `json:"hold_id,omitempty"`
	CustomerEmail string     `json:"customer_email"`
	NumSeats      int        `json:"num_seats"`
	Seats         []SeatInfo `json:"seats,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at,omitzero"`
	Error         *ErrorInfo `json:"error,omitempty"`
}

// NewFailedHold builds an error result for a hold request.
func NewFailedHold(customerEmail string, numSeats int, code, message string) *SeatHold {
	return &SeatHold{
		CustomerEmail: customerEmail,
		NumSeats:      numSeats,
		Error:         &ErrorInfo{Code: code, Message: message},
	}
}

// Failed reports whether the hold request was rejected.
func (h *SeatHold) Failed() bool {
	return h.Error != nil
}

// ToJSON converts the hold result to JSON
func (h *SeatHold) ToJSON() ([]byte, error) {
	return json.Marshal(h)
}
