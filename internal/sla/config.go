package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// Weekday is an ISO-8601 day of week: Monday=1 ... Sunday=7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// ISOWeekday converts t's weekday to the ISO convention.
func ISOWeekday(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// WorkingHours is a daily [Start, End) window expressed in whole hours.
type WorkingHours struct {
	Start int
	End   int
}

// Config is the SLA policy for one priority.
type Config struct {
	ResponseHours    int
	ResolutionHours  int
	WorkingHoursOnly bool
	WorkingHours     WorkingHours
	WorkingDays      []Weekday
}

// Table maps each priority to its policy.
type Table map[domain.TicketPriority]Config

var weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// DefaultTable returns a fresh copy of the built-in policies. Critical
// tickets run on a 24/7 clock; the rest only tick during business hours.
func DefaultTable() Table {
	business := WorkingHours{Start: 9, End: 18}
	return Table{
		domain.TicketPriorityCritical: {
			ResponseHours:    1,
			ResolutionHours:  8,
			WorkingHoursOnly: false,
			WorkingHours:     WorkingHours{Start: 0, End: 23},
			WorkingDays:      []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday},
		},
		domain.TicketPriorityHigh: {
			ResponseHours:    4,
			ResolutionHours:  24,
			WorkingHoursOnly: true,
			WorkingHours:     business,
			WorkingDays:      append([]Weekday(nil), weekdays...),
		},
		domain.TicketPriorityMedium: {
			ResponseHours:    8,
			ResolutionHours:  48,
			WorkingHoursOnly: true,
			WorkingHours:     business,
			WorkingDays:      append([]Weekday(nil), weekdays...),
		},
		domain.TicketPriorityLow: {
			ResponseHours:    24,
			ResolutionHours:  120,
			WorkingHoursOnly: true,
			WorkingHours:     business,
			WorkingDays:      append([]Weekday(nil), weekdays...),
		},
	}
}

// Overrides replaces any subset of a resolved Config. Nil fields keep the
// table value.
type Overrides struct {
	ResponseHours    *int
	ResolutionHours  *int
	WorkingHoursOnly *bool
	WorkingHours     *WorkingHours
	WorkingDays      []Weekday
}

// Apply returns cfg with the non-nil override fields substituted.
func (o *Overrides) Apply(cfg Config) Config {
	if o == nil {
		return cfg
	}
	if o.ResponseHours != nil {
		cfg.ResponseHours = *o.ResponseHours
	}
	if o.ResolutionHours != nil {
		cfg.ResolutionHours = *o.ResolutionHours
	}
	if o.WorkingHoursOnly != nil {
		cfg.WorkingHoursOnly = *o.WorkingHoursOnly
	}
	if o.WorkingHours != nil {
		cfg.WorkingHours = *o.WorkingHours
	}
	if o.WorkingDays != nil {
		cfg.WorkingDays = o.WorkingDays
	}
	return cfg
}

// Validate checks the policy is usable for deadline computation.
func (c Config) Validate() error {
	if c.ResponseHours < 0 || c.ResolutionHours < 0 {
		return fmt.Errorf("%w: negative hour budget", ErrInvalidSLAConfig)
	}
	wh := c.WorkingHours
	if wh.Start < 0 || wh.Start > 23 || wh.End < 0 || wh.End > 23 {
		return fmt.Errorf("%w: working hours %d-%d out of range", ErrInvalidSLAConfig, wh.Start, wh.End)
	}
	if wh.Start >= wh.End {
		return fmt.Errorf("%w: working hours start %d not before end %d", ErrInvalidSLAConfig, wh.Start, wh.End)
	}
	if c.WorkingHoursOnly && len(c.WorkingDays) == 0 {
		return fmt.Errorf("%w: no working days", ErrInvalidSLAConfig)
	}
	for _, d := range c.WorkingDays {
		if d < Monday || d > Sunday {
			return fmt.Errorf("%w: working day %d out of range", ErrInvalidSLAConfig, d)
		}
	}
	return nil
}

// Budget returns the hour budget selected by kind.
func (c Config) Budget(kind Kind) int {
	if kind == KindResponse {
		return c.ResponseHours
	}
	return c.ResolutionHours
}

func (c Config) isWorkingDay(t time.Time) bool {
	dow := ISOWeekday(t)
	for _, d := range c.WorkingDays {
		if d == dow {
			return true
		}
	}
	return false
}

// Validate checks every policy in the table.
func (t Table) Validate() error {
	for _, p := range domain.TicketPriorities {
		cfg, ok := t[p]
		if !ok {
			return fmt.Errorf("%w: missing policy for %q", ErrInvalidSLAConfig, p)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("priority %q: %w", p, err)
		}
	}
	return nil
}
