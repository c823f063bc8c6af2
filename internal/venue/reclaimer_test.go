package venue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sanksan/tics/pkg/logger"
)

func TestReclaimer_SweepsOnStartAndOnTick(t *testing.T) {
	var sweeps atomic.Int64
	r := NewReclaimer(5*time.Millisecond, func(context.Context) int {
		sweeps.Add(1)
		return 0
	}, logger.Discard())

	r.Start(context.Background())
	waitFor(t, time.Second, func() bool { return r.Sweeps() >= 3 })
	r.Stop()

	after := sweeps.Load()
	time.Sleep(20 * time.Millisecond)
	if sweeps.Load() != after {
		t.Fatalf("reclaimer kept sweeping after Stop")
	}
	r.Stop()
}

func TestReclaimer_StopsOnContextCancel(t *testing.T) {
	var sweeps atomic.Int64
	r := NewReclaimer(time.Hour, func(context.Context) int {
		sweeps.Add(1)
		return 0
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	waitFor(t, time.Second, func() bool { return sweeps.Load() == 1 })
	cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("reclaimer did not exit on context cancel")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}
