// Package repl implements the line-oriented box office console: Venue:,
// Hold: and Reserve: commands against a single venue.Service.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sanksan/tics/internal/seats"
	"github.com/sanksan/tics/internal/venue"
	"github.com/sanksan/tics/pkg/logger"
	"github.com/sanksan/tics/pkg/ratelimit"
)

const (
	msgCommandFailed = "Exception occurred while processing command. Please try again."
	msgNoVenue       = "No venue configured. Start with: Venue: RowCount ColumnCount HoldPeriod"
)

// Usage is printed on start and whenever a command is too short.
const Usage = `[REPL]Listening for commands. Valid commands include.
Venue: RowCount ColumnCount HoldPeriod.
Hold: NumSeats Emailid.
Reserve: HoldId Emailid.
Example:
Venue: 2 5 30000
Hold: 2 todd@email.com
Reserve: 1 todd@email.com
Hold: 10 ryan@email.com`

var exitKeywords = map[string]bool{"quit": true, "exit": true, "bye": true}

var errBadCommand = errors.New("bad command")

// Factory opens a venue for a Venue: command.
type Factory func(rows, columns int, holdPeriod time.Duration) (venue.Service, error)

// Session holds the current venue and writes command results to out.
type Session struct {
	factory    Factory
	out        io.Writer
	limiter    *ratelimit.RateLimiter
	holdPeriod time.Duration
	log        *logger.Logger

	service venue.Service
}

// Option configures a Session.
type Option func(*Session)

// WithRateLimiter throttles Hold: commands per customer email.
func WithRateLimiter(l *ratelimit.RateLimiter) Option {
	return func(s *Session) { s.limiter = l }
}

// WithDefaultHoldPeriod sets the hold period used when Venue: omits one.
func WithDefaultHoldPeriod(d time.Duration) Option {
	return func(s *Session) { s.holdPeriod = d }
}

// WithService starts the session with an already open venue.
func WithService(svc venue.Service) Option {
	return func(s *Session) { s.service = svc }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

func NewSession(factory Factory, out io.Writer, opts ...Option) *Session {
	s := &Session{
		factory:    factory,
		out:        out,
		holdPeriod: venue.DefaultHoldPeriod,
		log:        logger.GetDefault(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads commands from in until EOF, an exit keyword or ctx is done.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	s.println(Usage)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := s.Execute(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute runs a single command line and reports whether the session should end.
func (s *Session) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if exitKeywords[strings.ToLower(line)] {
		return true
	}

	tokens := strings.Fields(line)
	if len(tokens) < 3 {
		s.println(Usage)
		return false
	}

	var err error
	switch strings.ToLower(tokens[0]) {
	case "venue:":
		err = s.openVenue(tokens[1:])
	case "hold:":
		err = s.hold(ctx, tokens[1:])
	case "reserve:":
		err = s.reserve(ctx, tokens[1:])
	default:
		err = fmt.Errorf("%w: unknown command %q", errBadCommand, tokens[0])
	}

	if err != nil {
		s.log.Debug("command failed", "command", tokens[0], "error", err)
		s.println(msgCommandFailed)
	}
	return false
}

// Close releases the current venue, if any.
func (s *Session) Close() error {
	if s.service == nil {
		return nil
	}
	err := s.service.Close()
	s.service = nil
	return err
}

func (s *Session) openVenue(args []string) error {
	rows, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: rows: %v", errBadCommand, err)
	}
	columns, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: columns: %v", errBadCommand, err)
	}
	holdPeriod := s.holdPeriod
	if len(args) > 2 {
		millis, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: hold period: %v", errBadCommand, err)
		}
		holdPeriod = time.Duration(millis) * time.Millisecond
	}

	svc, err := s.factory(rows, columns, holdPeriod)
	if err != nil {
		return err
	}
	if s.service != nil {
		if err := s.service.Close(); err != nil {
			s.log.Warn("failed to close previous venue", "error", err)
		}
	}
	s.service = svc

	s.printAvailable()
	return nil
}

func (s *Session) hold(ctx context.Context, args []string) error {
	numSeats, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: seat count: %v", errBadCommand, err)
	}
	if s.service == nil {
		s.println(msgNoVenue)
		return nil
	}
	email := args[1]

	var hold *seats.SeatHold
	if s.limiter != nil && !s.limiter.Allow(strings.ToLower(email)) {
		hold = seats.NewFailedHold(email, numSeats, seats.ErrorCodeRateLimited, "Too many hold requests, try again later")
	} else {
		hold = s.service.FindAndHoldSeats(ctx, numSeats, email)
	}

	data, err := hold.ToJSON()
	if err != nil {
		return err
	}
	s.println(string(data))
	s.printAvailable()
	return nil
}

func (s *Session) reserve(ctx context.Context, args []string) error {
	holdID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: hold id: %v", errBadCommand, err)
	}
	if s.service == nil {
		s.println(msgNoVenue)
		return nil
	}

	id, err := s.service.ReserveSeats(ctx, holdID, args[1])
	switch {
	case err == nil:
		s.println(id)
	case errors.Is(err, venue.ErrHoldNotFound):
		s.println("null")
	default:
		return err
	}
	s.printAvailable()
	return nil
}

func (s *Session) printAvailable() {
	s.println(fmt.Sprintf("Available seats: %d", s.service.NumSeatsAvailable()))
}

func (s *Session) println(line string) {
	fmt.Fprintln(s.out, line)
}
