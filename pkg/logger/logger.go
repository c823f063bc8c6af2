package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance writing to stdout
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("APP_MODE"))
}

// NewWithWriter creates a logger writing to w. Debug mode uses the text
// handler, anything else the JSON handler.
func NewWithWriter(w io.Writer, level, mode string) *Logger {
	lvl := getLogLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if mode == "" || strings.EqualFold(mode, "debug") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithCustomer adds the customer email to logger context
func (l *Logger) WithCustomer(email string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("customer_email", email)),
	}
}

// WithHoldID adds hold ID to logger context
func (l *Logger) WithHoldID(holdID int) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.Int("hold_id", holdID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// Venue logging methods

// LogVenueOpened logs venue construction
func (l *Logger) LogVenueOpened(ctx context.Context, rows, columns int, holdPeriod time.Duration) {
	l.Logger.InfoContext(ctx,
		"Venue Opened",
		slog.Int("rows", rows),
		slog.Int("columns", columns),
		slog.Int("capacity", rows*columns),
		slog.Duration("hold_period", holdPeriod),
	)
}

// LogHoldCreated logs a successful hold
func (l *Logger) LogHoldCreated(ctx context.Context, holdID int, email string, numSeats int, expiresAt time.Time) {
	l.Logger.InfoContext(ctx,
		"Hold Created",
		slog.Int("hold_id", holdID),
		slog.String("customer_email", email),
		slog.Int("num_seats", numSeats),
		slog.Time("expires_at", expiresAt),
	)
}

// LogHoldRejected logs a hold request that produced no hold
func (l *Logger) LogHoldRejected(ctx context.Context, email string, numSeats int, code string) {
	l.Logger.WarnContext(ctx,
		"Hold Rejected",
		slog.String("customer_email", email),
		slog.Int("num_seats", numSeats),
		slog.String("code", code),
	)
}

// LogSeatsReserved logs a hold converted into a reservation
func (l *Logger) LogSeatsReserved(ctx context.Context, reservationID string, holdID int, email string, numSeats int) {
	l.Logger.InfoContext(ctx,
		"Seats Reserved",
		slog.String("reservation_id", reservationID),
		slog.Int("hold_id", holdID),
		slog.String("customer_email", email),
		slog.Int("num_seats", numSeats),
	)
}

// LogHoldsReclaimed logs seats returned to the pool after expiry
func (l *Logger) LogHoldsReclaimed(ctx context.Context, holds, numSeats, available int) {
	l.Logger.InfoContext(ctx,
		"Holds Reclaimed",
		slog.Int("holds", holds),
		slog.Int("num_seats", numSeats),
		slog.Int("available", available),
	)
}

// Helper methods for common patterns

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, args ...any) {
	args = append([]any{slog.String("error", err.Error())}, args...)
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
