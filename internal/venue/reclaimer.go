package venue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sanksan/tics/pkg/logger"
)

// SweepFunc reclaims expired holds and returns the number of seats released.
type SweepFunc func(ctx context.Context) int

// Reclaimer periodically returns the seats of expired holds to the pool.
// It sweeps once on Start and then on every tick until stopped.
type Reclaimer struct {
	interval time.Duration
	sweep    SweepFunc
	log      *logger.Logger

	sweeps   atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReclaimer(interval time.Duration, sweep SweepFunc, log *logger.Logger) *Reclaimer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Reclaimer{
		interval: interval,
		sweep:    sweep,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately.
func (r *Reclaimer) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)
	r.log.Debug("Hold reclaimer started", slog.Duration("interval", r.interval))
}

// Stop ends the sweep loop and waits for an in-flight sweep to finish.
// It is safe to call more than once.
func (r *Reclaimer) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

func (r *Reclaimer) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runSweep(ctx)
	for {
		select {
		case <-ticker.C:
			r.runSweep(ctx)
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reclaimer) runSweep(ctx context.Context) {
	r.sweep(ctx)
	r.sweeps.Add(1)
}

// Sweeps returns the number of completed sweeps.
func (r *Reclaimer) Sweeps() int64 {
	return r.sweeps.Load()
}
