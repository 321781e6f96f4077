package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/ticket-desk/internal/clock"
	"github.com/spec-kit/ticket-desk/internal/domain"
)

// Kind selects which budget of a policy applies.
type Kind string

const (
	KindResponse   Kind = "response"
	KindResolution Kind = "resolution"
)

// ParseKind validates a kind received from untrusted input.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindResponse, KindResolution:
		return Kind(raw), nil
	}
	return "", fmt.Errorf("unknown sla kind %q", raw)
}

// Status classifies a deadline against a reference instant.
type Status string

const (
	StatusOnTime  Status = "on-time"
	StatusWarning Status = "warning"
	StatusOverdue Status = "overdue"
)

// DefaultWarningWindow is how close to the deadline a ticket turns warning.
const DefaultWarningWindow = 60 * time.Minute

// Engine computes deadlines and classifies them. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	table   Table
	loc     *time.Location
	warning time.Duration
	clock   clock.Clock
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLocation sets the zone whose calendar defines business hours.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithWarningWindow overrides DefaultWarningWindow.
func WithWarningWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.warning = d
		}
	}
}

// WithClock injects the clock used when no reference time is given.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = clock.OrSystem(c)
	}
}

// NewEngine validates table and builds an Engine. Business hours default to UTC.
func NewEngine(table Table, opts ...Option) (*Engine, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		table:   table,
		loc:     time.UTC,
		warning: DefaultWarningWindow,
		clock:   clock.System{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Location returns the business time zone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Config resolves the policy for priority with overrides applied.
func (e *Engine) Config(priority domain.TicketPriority, overrides *Overrides) (Config, error) {
	base, ok := e.table[priority]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	cfg := overrides.Apply(base)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DueDate computes the deadline for a ticket created at createdAt.
func (e *Engine) DueDate(createdAt time.Time, priority domain.TicketPriority, kind Kind, overrides *Overrides) (time.Time, error) {
	if createdAt.IsZero() {
		return time.Time{}, ErrInvalidTimestamp
	}
	cfg, err := e.Config(priority, overrides)
	if err != nil {
		return time.Time{}, err
	}
	budget := time.Duration(cfg.Budget(kind)) * time.Hour
	if budget == 0 {
		return createdAt, nil
	}
	if !cfg.WorkingHoursOnly {
		return createdAt.Add(budget), nil
	}
	return walkBusinessHours(createdAt.In(e.loc), budget, cfg), nil
}

// walkBusinessHours advances a cursor day by day, consuming budget only
// inside the working window of working days.
func walkBusinessHours(cursor time.Time, budget time.Duration, cfg Config) time.Time {
	opening, closing := cfg.WorkingHours.Start, cfg.WorkingHours.End
	remaining := budget
	for remaining > 0 {
		switch hour := cursor.Hour(); {
		case !cfg.isWorkingDay(cursor):
			cursor = atHour(cursor, 1, opening)
		case hour < opening:
			cursor = atHour(cursor, 0, opening)
		case hour >= closing:
			cursor = atHour(cursor, 1, opening)
		default:
			available := atHour(cursor, 0, closing).Sub(cursor)
			consume := min(remaining, available)
			cursor = cursor.Add(consume)
			remaining -= consume
		}
	}
	// A deadline at closing time is equivalent to the next opening.
	for cursor.Hour() >= closing || !cfg.isWorkingDay(cursor) {
		cursor = atHour(cursor, 1, opening)
	}
	return cursor
}

// atHour returns the wall-clock instant addDays after t's date at hour:00.
func atHour(t time.Time, addDays, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+addDays, hour, 0, 0, 0, t.Location())
}

// Status classifies due against reference. A deadline exactly
// WarningWindow away is already a warning.
func (e *Engine) Status(due, reference time.Time) (Status, error) {
	if due.IsZero() || reference.IsZero() {
		return "", ErrInvalidTimestamp
	}
	left := due.Sub(reference)
	switch {
	case left < 0:
		return StatusOverdue, nil
	case left <= e.warning:
		return StatusWarning, nil
	default:
		return StatusOnTime, nil
	}
}

// StatusAt classifies due against completedAt, or against the clock when
// completedAt is nil.
func (e *Engine) StatusAt(due time.Time, completedAt *time.Time) (Status, error) {
	if completedAt != nil {
		return e.Status(due, *completedAt)
	}
	return e.Status(due, e.clock.Now())
}

// ParseTimestamp parses a stored RFC 3339 timestamp.
func ParseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil || t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
	}
	return t, nil
}
