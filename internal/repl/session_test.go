package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sanksan/tics/internal/venue"
	"github.com/sanksan/tics/pkg/logger"
	"github.com/sanksan/tics/pkg/ratelimit"
)

type trackingFactory struct {
	opened []*venue.Venue
}

func (f *trackingFactory) open(rows, columns int, holdPeriod time.Duration) (venue.Service, error) {
	v, err := venue.New(venue.Config{
		Rows:       rows,
		Columns:    columns,
		HoldPeriod: holdPeriod,
	}, venue.WithLogger(logger.Discard()))
	if err != nil {
		return nil, err
	}
	f.opened = append(f.opened, v)
	return v, nil
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *bytes.Buffer, *trackingFactory) {
	t.Helper()
	var out bytes.Buffer
	f := &trackingFactory{}
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	s := NewSession(f.open, &out, opts...)
	t.Cleanup(func() { s.Close() })
	return s, &out, f
}

func lines(out *bytes.Buffer) []string {
	text := strings.TrimRight(out.String(), "\n")
	out.Reset()
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestSession_HoldAndReserve(t *testing.T) {
	s, out, _ := newTestSession(t)
	ctx := context.Background()

	s.Execute(ctx, "Venue: 2 5 30000")
	if got := lines(out); len(got) != 1 || got[0] != "Available seats: 10" {
		t.Fatalf("unexpected venue output %q", got)
	}

	s.Execute(ctx, "Hold: 2 todd@email.com")
	got := lines(out)
	if len(got) != 2 {
		t.Fatalf("unexpected hold output %q", got)
	}
	if !strings.Contains(got[0], `"hold_id":1`) || !strings.Contains(got[0], `"customer_email":"todd@email.com"`) {
		t.Fatalf("hold JSON missing fields: %s", got[0])
	}
	if got[1] != "Available seats: 8" {
		t.Fatalf("unexpected availability line %q", got[1])
	}

	s.Execute(ctx, "reserve: 1 todd@email.com")
	got = lines(out)
	if len(got) != 2 || got[0] == "null" || got[0] == "" {
		t.Fatalf("expected a reservation id, got %q", got)
	}
	if got[1] != "Available seats: 8" {
		t.Fatalf("reserving must not change availability: %q", got[1])
	}

	s.Execute(ctx, "Reserve: 1 todd@email.com")
	if got := lines(out); len(got) != 2 || got[0] != "null" {
		t.Fatalf("second reserve should print null, got %q", got)
	}
}

func TestSession_RejectedHoldIsReported(t *testing.T) {
	s, out, _ := newTestSession(t)
	ctx := context.Background()

	s.Execute(ctx, "Venue: 2 5 30000")
	lines(out)

	s.Execute(ctx, "Hold: 10 ryan@email.com")
	lines(out)
	s.Execute(ctx, "Hold: 1 ryan@email.com")
	got := lines(out)
	if len(got) != 2 || !strings.Contains(got[0], `"code":"NOT_AVAILABLE"`) {
		t.Fatalf("expected NOT_AVAILABLE, got %q", got)
	}
	if got[1] != "Available seats: 0" {
		t.Fatalf("unexpected availability line %q", got[1])
	}
}

func TestSession_UsageAndErrors(t *testing.T) {
	s, out, _ := newTestSession(t)
	ctx := context.Background()

	s.Execute(ctx, "Hold: 2")
	if !strings.HasPrefix(out.String(), "[REPL]") {
		t.Fatalf("short command should print usage, got %q", out.String())
	}
	out.Reset()

	s.Execute(ctx, "Hold: 2 a@b.com")
	if got := lines(out); len(got) != 1 || got[0] != msgNoVenue {
		t.Fatalf("expected no venue message, got %q", got)
	}

	for _, cmd := range []string{
		"Venue: two 5 100",
		"Venue: 0 5 100",
		"Venue: 2 5 -1",
		"Hold: x a@b.com",
		"Dance: 1 2 3",
	} {
		s.Execute(ctx, cmd)
		if got := lines(out); len(got) != 1 || got[0] != msgCommandFailed {
			t.Fatalf("%q: expected failure message, got %q", cmd, got)
		}
	}
}

func TestSession_VenueWithoutHoldPeriodUsesDefault(t *testing.T) {
	s, out, f := newTestSession(t, WithDefaultHoldPeriod(time.Minute))

	s.Execute(context.Background(), "Venue: 1 3")
	if got := lines(out); len(got) != 1 || got[0] != "Available seats: 3" {
		t.Fatalf("unexpected output %q", got)
	}
	if len(f.opened) != 1 || f.opened[0].HoldPeriod() != time.Minute {
		t.Fatalf("expected default hold period to be used")
	}
}

func TestSession_NewVenueClosesPrevious(t *testing.T) {
	s, out, f := newTestSession(t)
	ctx := context.Background()

	s.Execute(ctx, "Venue: 1 2 30000")
	s.Execute(ctx, "Hold: 2 a@b.com")
	s.Execute(ctx, "Venue: 3 3 30000")
	got := lines(out)
	if got[len(got)-1] != "Available seats: 9" {
		t.Fatalf("new venue should start empty, got %q", got)
	}
	if len(f.opened) != 2 {
		t.Fatalf("expected two venues, got %d", len(f.opened))
	}
	// Closing twice is harmless, so the session must already have closed it.
	if err := f.opened[0].Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSession_RateLimitedHold(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(ratelimit.Config{Enabled: true, RPS: 0.001, Burst: 1})
	s, out, _ := newTestSession(t, WithRateLimiter(limiter))
	ctx := context.Background()

	s.Execute(ctx, "Venue: 2 5 30000")
	s.Execute(ctx, "Hold: 1 a@b.com")
	lines(out)

	s.Execute(ctx, "Hold: 1 A@B.com")
	got := lines(out)
	if len(got) != 2 || !strings.Contains(got[0], `"code":"RATE_LIMITED"`) {
		t.Fatalf("expected RATE_LIMITED, got %q", got)
	}
	if got[1] != "Available seats: 9" {
		t.Fatalf("throttled hold must not take seats: %q", got[1])
	}

	s.Execute(ctx, "Hold: 1 other@b.com")
	if got := lines(out); strings.Contains(got[0], "RATE_LIMITED") {
		t.Fatalf("other customers are not throttled: %q", got)
	}
}

func TestSession_RunStopsOnExitKeyword(t *testing.T) {
	s, out, _ := newTestSession(t)

	in := strings.NewReader("Venue: 1 4 30000\nHold: 1 a@b.com\nBYE\nHold: 1 a@b.com\n")
	if err := s.Run(context.Background(), in); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if strings.Count(text, `"hold_id"`) != 1 {
		t.Fatalf("commands after exit must not run:\n%s", text)
	}
	if !strings.Contains(text, "Available seats: 3") {
		t.Fatalf("missing availability line:\n%s", text)
	}
}
