package chatcmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/ticket-desk/internal/clock"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/geo"
)

// ShiftStore persists shifts. FindOpen returns nil without error when the
// user has no open shift. Create must fail with domain.ErrShiftAlreadyOpen
// when another open shift for the same (org, user) exists at insert time,
// and Close with domain.ErrNoOpenShift when the shift is no longer open;
// the interpreter's own check is not atomic with the write.
type ShiftStore interface {
	FindOpen(ctx context.Context, orgID, userID string) (*domain.Shift, error)
	Create(ctx context.Context, shift *domain.Shift) error
	Close(ctx context.Context, shift *domain.Shift) error
}

// Outcome is the result of a handled command.
type Outcome struct {
	Command Command
	Shift   *domain.Shift
	Message string
}

// Interpreter runs shift commands. The per-user state lives in the store,
// so one Interpreter serves all requests.
type Interpreter struct {
	shifts ShiftStore
	clock  clock.Clock
	loc    *time.Location
}

// NewInterpreter builds an Interpreter rendering times in loc.
func NewInterpreter(shifts ShiftStore, c clock.Clock, loc *time.Location) *Interpreter {
	if loc == nil {
		loc = time.UTC
	}
	return &Interpreter{shifts: shifts, clock: clock.OrSystem(c), loc: loc}
}

// Execute parses text and runs the matching command.
func (i *Interpreter) Execute(ctx context.Context, orgID, userID, text string, locator geo.Locator) (*Outcome, error) {
	cmd, err := Parse(text)
	if err != nil {
		return nil, err
	}
	switch c := cmd.(type) {
	case ShiftStart:
		return i.HandleStart(ctx, orgID, userID, c.EmployeeName, locator)
	case ShiftEnd:
		return i.HandleEnd(ctx, orgID, userID, locator)
	case Help:
		return &Outcome{Command: c, Message: HelpText()}, nil
	case Unrecognized:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedCommand, c.Text)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnrecognizedCommand, cmd)
	}
}

// HandleStart opens a shift for the user when none is open.
func (i *Interpreter) HandleStart(ctx context.Context, orgID, userID, employeeName string, locator geo.Locator) (*Outcome, error) {
	cmd := newShiftStart(strings.Fields(employeeName))
	if cmd.EmployeeName == "" {
		return nil, ErrMalformedCommand
	}
	open, err := i.shifts.FindOpen(ctx, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("find open shift: %w", err)
	}
	if open != nil {
		return nil, domain.ErrShiftAlreadyOpen
	}

	sample, err := locator.CurrentPosition(ctx)
	if err != nil {
		return nil, err
	}

	shift := &domain.Shift{
		OrgID:        orgID,
		UserID:       userID,
		EmployeeName: cmd.EmployeeName,
		StartAt:      i.clock.Now(),
		StartGeo:     &sample,
		Status:       domain.ShiftStatusOpen,
	}
	if err := i.shifts.Create(ctx, shift); err != nil {
		return nil, err
	}
	return &Outcome{
		Command: cmd,
		Shift:   shift,
		Message: startConfirmation(shift, i.loc),
	}, nil
}

// HandleEnd closes the user's open shift and stamps its duration.
func (i *Interpreter) HandleEnd(ctx context.Context, orgID, userID string, locator geo.Locator) (*Outcome, error) {
	shift, err := i.shifts.FindOpen(ctx, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("find open shift: %w", err)
	}
	if shift == nil {
		return nil, domain.ErrNoOpenShift
	}

	sample, err := locator.CurrentPosition(ctx)
	if err != nil {
		return nil, err
	}

	end := i.clock.Now()
	minutes := DurationMinutes(shift.StartAt, end)
	closed := *shift
	closed.EndAt = &end
	closed.EndGeo = &sample
	closed.Status = domain.ShiftStatusClosed
	closed.DurationMinutes = &minutes
	if err := i.shifts.Close(ctx, &closed); err != nil {
		return nil, err
	}
	return &Outcome{
		Command: ShiftEnd{},
		Shift:   &closed,
		Message: endConfirmation(&closed, i.loc),
	}, nil
}
