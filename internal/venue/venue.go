// Package venue allocates the seats of a single venue. Seats are taken from a
// free pool into time-bounded holds, and a hold is either converted into a
// permanent reservation or reclaimed into the pool once it expires.
package venue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-playground/validator/v10"

	"github.com/sanksan/tics/internal/ids"
	"github.com/sanksan/tics/internal/notifications"
	"github.com/sanksan/tics/internal/reservations"
	"github.com/sanksan/tics/internal/seats"
	"github.com/sanksan/tics/pkg/logger"
)

// DefaultHoldPeriod is the hold lifetime used by the front ends when none is configured.
const DefaultHoldPeriod = time.Second

// Service is the allocation API offered to front ends.
type Service interface {
	NumSeatsAvailable() int
	FindAndHoldSeats(ctx context.Context, numSeats int, customerEmail string) *seats.SeatHold
	ReserveSeats(ctx context.Context, holdID int, customerEmail string) (string, error)
	Close() error
}

// HoldIDGenerator produces monotonically increasing hold ids.
type HoldIDGenerator interface {
	NextHoldID(ctx context.Context) (int, error)
}

// ReservationIDGenerator produces globally unique reservation ids.
type ReservationIDGenerator interface {
	NextReservationID(ctx context.Context) (string, error)
}

// Config sizes the venue. ReclaimInterval defaults to HoldPeriod.
type Config struct {
	Rows            int           `validate:"gt=0"`
	Columns         int           `validate:"gt=0"`
	HoldPeriod      time.Duration `validate:"gt=0"`
	ReclaimInterval time.Duration `validate:"gte=0"`
}

type holdRequest struct {
	NumSeats      int    `validate:"gt=0"`
	CustomerEmail string `validate:"required"`
}

var validate = validator.New()

// Option configures a Venue.
type Option func(*Venue)

// WithClock replaces time.Now for hold expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(v *Venue) { v.now = now }
}

func WithHoldIDs(g HoldIDGenerator) Option {
	return func(v *Venue) { v.holdIDs = g }
}

func WithReservationIDs(g ReservationIDGenerator) Option {
	return func(v *Venue) { v.reservationIDs = g }
}

func WithReservations(repo reservations.Repository) Option {
	return func(v *Venue) { v.reservations = repo }
}

func WithPublisher(p notifications.Publisher) Option {
	return func(v *Venue) { v.publisher = p }
}

func WithLogger(l *logger.Logger) Option {
	return func(v *Venue) { v.log = l }
}

// Venue implements Service over a FreePool and a HoldRegistry.
type Venue struct {
	cfg Config

	pool      *FreePool
	holds     *HoldRegistry
	reclaimer *Reclaimer

	available   atomic.Int64
	reservedMu  sync.Mutex
	reserved    *bitset.BitSet
	numReserved int

	holdIDs        HoldIDGenerator
	reservationIDs ReservationIDGenerator
	reservations   reservations.Repository
	publisher      notifications.Publisher
	log            *logger.Logger
	now            func() time.Time

	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ Service = (*Venue)(nil)

// New builds a venue of rows*columns free seats and starts its reclaimer.
// A non-positive dimension or hold period yields an error wrapping ErrInvalidConfig.
func New(cfg Config, opts ...Option) (*Venue, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, describe(err))
	}
	if cfg.ReclaimInterval == 0 {
		cfg.ReclaimInterval = cfg.HoldPeriod
	}

	v := &Venue{
		cfg:            cfg,
		pool:           NewFreePool(cfg.Rows, cfg.Columns),
		holds:          NewHoldRegistry(),
		reserved:       bitset.New(uint(cfg.Rows * cfg.Columns)),
		holdIDs:        ids.NewSequence(0),
		reservationIDs: ids.UUID{},
		reservations:   reservations.NewMemoryRepository(),
		publisher:      notifications.NoopPublisher{},
		log:            logger.GetDefault(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.available.Store(int64(cfg.Rows * cfg.Columns))

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.reclaimer = NewReclaimer(cfg.ReclaimInterval, v.ReclaimExpired, v.log)
	v.reclaimer.Start(ctx)

	v.log.LogVenueOpened(ctx, cfg.Rows, cfg.Columns, cfg.HoldPeriod)
	return v, nil
}

// Capacity returns rows*columns.
func (v *Venue) Capacity() int {
	return v.cfg.Rows * v.cfg.Columns
}

// HoldPeriod returns the lifetime given to new holds.
func (v *Venue) HoldPeriod() time.Duration {
	return v.cfg.HoldPeriod
}

func (v *Venue) NumSeatsAvailable() int {
	return int(v.available.Load())
}

// FindAndHoldSeats holds numSeats seats for customerEmail. Failures are
// reported in-band through SeatHold.Error and leave the venue unchanged.
func (v *Venue) FindAndHoldSeats(ctx context.Context, numSeats int, customerEmail string) *seats.SeatHold {
	customerEmail = strings.TrimSpace(customerEmail)

	if err := validate.Struct(holdRequest{NumSeats: numSeats, CustomerEmail: customerEmail}); err != nil {
		v.log.LogHoldRejected(ctx, customerEmail, numSeats, seats.ErrorCodeInvalidInput)
		return seats.NewFailedHold(customerEmail, numSeats, seats.ErrorCodeInvalidInput, describe(err))
	}

	blocks, err := v.pool.Acquire(numSeats)
	if err != nil {
		v.log.LogHoldRejected(ctx, customerEmail, numSeats, seats.ErrorCodeNotAvailable)
		return seats.NewFailedHold(customerEmail, numSeats, seats.ErrorCodeNotAvailable,
			"The requested seats could not be allocated")
	}
	// Counted before the hold becomes visible to the reclaimer.
	v.available.Add(-int64(numSeats))

	holdID, err := v.holdIDs.NextHoldID(ctx)
	if err != nil {
		v.restore(blocks)
		v.log.WithCustomer(customerEmail).ErrorWithContext(ctx, "Hold id generation failed", err)
		return seats.NewFailedHold(customerEmail, numSeats, seats.ErrorCodeInternal,
			"The hold could not be registered")
	}

	now := v.now()
	hold := &Hold{
		ID:        holdID,
		Customer:  customerEmail,
		Blocks:    blocks,
		CreatedAt: now,
		ExpiresAt: now.Add(v.cfg.HoldPeriod),
	}
	if err := v.holds.Insert(hold); err != nil {
		v.restore(blocks)
		v.log.WithHoldID(holdID).ErrorWithContext(ctx, "Hold registration failed", err)
		return seats.NewFailedHold(customerEmail, numSeats, seats.ErrorCodeInternal,
			"The hold could not be registered")
	}

	v.log.LogHoldCreated(ctx, holdID, customerEmail, numSeats, hold.ExpiresAt)
	v.publish(ctx, notifications.NewVenueEvent(notifications.EventTypeHoldCreated, holdID, customerEmail, blocks, now).
		WithExpiry(hold.ExpiresAt))

	return &seats.SeatHold{
		HoldID:        holdID,
		CustomerEmail: customerEmail,
		NumSeats:      numSeats,
		Seats:         seats.Expand(blocks),
		ExpiresAt:     hold.ExpiresAt,
	}
}

// ReserveSeats converts a live hold into a reservation and returns its id.
// It returns an error wrapping ErrHoldNotFound when the hold is unknown, was
// already reserved, or has expired. Reserved seats never return to the pool.
func (v *Venue) ReserveSeats(ctx context.Context, holdID int, customerEmail string) (string, error) {
	hold, ok := v.holds.RemoveIfPresent(holdID)
	if !ok {
		return "", fmt.Errorf("hold %d: %w", holdID, ErrHoldNotFound)
	}

	now := v.now()
	if hold.Expired(now) {
		// The reclaimer has not swept it yet; the caller that won it reclaims it.
		v.reclaim(ctx, []*Hold{hold})
		return "", fmt.Errorf("hold %d expired at %s: %w", holdID, hold.ExpiresAt.Format(time.RFC3339Nano), ErrHoldNotFound)
	}

	reservationID, err := v.reservationIDs.NextReservationID(ctx)
	if err != nil {
		v.reinstate(ctx, hold)
		return "", fmt.Errorf("failed to generate reservation id: %w", err)
	}

	record := &reservations.Reservation{
		ID:            reservationID,
		HoldID:        hold.ID,
		CustomerEmail: hold.Customer,
		Blocks:        hold.Blocks,
		ReservedAt:    now,
	}
	if err := v.reservations.Save(ctx, record); err != nil {
		v.reinstate(ctx, hold)
		return "", fmt.Errorf("failed to record reservation: %w", err)
	}
	v.markReserved(hold.Blocks)

	v.log.LogSeatsReserved(ctx, reservationID, hold.ID, strings.TrimSpace(customerEmail), hold.NumSeats())
	v.publish(ctx, notifications.NewVenueEvent(notifications.EventTypeSeatsReserved, hold.ID, hold.Customer, hold.Blocks, now).
		WithReservation(reservationID))

	return reservationID, nil
}

// ReclaimExpired returns the seats of every hold expired at the current time
// to the pool and reports how many seats were released.
func (v *Venue) ReclaimExpired(ctx context.Context) int {
	return v.reclaim(ctx, v.holds.DrainExpired(v.now()))
}

func (v *Venue) reclaim(ctx context.Context, expired []*Hold) int {
	if len(expired) == 0 {
		return 0
	}

	released := 0
	now := v.now()
	events := make([]*notifications.VenueEvent, 0, len(expired))
	for _, h := range expired {
		n := h.NumSeats()
		// Counted before the seats become acquirable again.
		v.available.Add(int64(n))
		v.pool.Release(h.Blocks)
		released += n
		events = append(events, notifications.NewVenueEvent(notifications.EventTypeHoldExpired, h.ID, h.Customer, h.Blocks, now).
			WithExpiry(h.ExpiresAt))
	}

	v.log.LogHoldsReclaimed(ctx, len(expired), released, v.NumSeatsAvailable())
	if err := v.publisher.PublishBatch(ctx, events); err != nil {
		v.log.WithError(err).WarnContext(ctx, "Failed to publish expired holds", slog.Int("holds", len(events)))
	}
	return released
}

// Reservation looks up a stored reservation record.
func (v *Venue) Reservation(ctx context.Context, id string) (*reservations.Reservation, error) {
	return v.reservations.Get(ctx, id)
}

// Close stops the reclaimer and the event publisher. Outstanding holds are dropped.
func (v *Venue) Close() error {
	var err error
	v.closeOnce.Do(func() {
		v.reclaimer.Stop()
		v.cancel()
		err = v.publisher.Close()
	})
	return err
}

// restore undoes a pool acquisition that never became a hold.
func (v *Venue) restore(blocks []seats.SeatBlock) {
	v.available.Add(int64(seats.Total(blocks)))
	v.pool.Release(blocks)
}

// reinstate puts a hold back after a failed reservation attempt.
func (v *Venue) reinstate(ctx context.Context, h *Hold) {
	if err := v.holds.Insert(h); err != nil {
		v.log.WithHoldID(h.ID).ErrorWithContext(ctx, "Failed to reinstate hold", err)
		v.restore(h.Blocks)
	}
}

func (v *Venue) markReserved(blocks []seats.SeatBlock) {
	v.reservedMu.Lock()
	defer v.reservedMu.Unlock()

	for _, b := range blocks {
		for col := b.Col; col < b.End(); col++ {
			v.reserved.Set(v.seatIndex(b.Row, col))
		}
		v.numReserved += b.Length
	}
}

func (v *Venue) seatIndex(row, col int) uint {
	return uint((row-1)*v.cfg.Columns + (col - 1))
}

func (v *Venue) publish(ctx context.Context, event *notifications.VenueEvent) {
	if err := v.publisher.Publish(ctx, event); err != nil {
		v.log.WithHoldID(event.HoldID).WithError(err).WarnContext(ctx, "Failed to publish venue event",
			slog.String("type", string(event.Type)),
		)
	}
}

// describe flattens validator errors into a single message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s, got %v", fe.Field(), fe.Param(), fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
