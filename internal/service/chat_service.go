package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/chatcmd"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/geo"
	"github.com/spec-kit/ticket-desk/internal/observability"
)

// CommandLocker serializes commands of one user across instances.
type CommandLocker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// ChatService routes ticket chat input to either the thread or the
// command interpreter. Command results, success or failure, are posted
// back to the thread as a message authored by the caller.
type ChatService struct {
	tickets     *TicketService
	interpreter *chatcmd.Interpreter
	locks       CommandLocker
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	lockTTL     time.Duration
	geoTimeout  time.Duration
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	Tickets            *TicketService
	Interpreter        *chatcmd.Interpreter
	Locks              CommandLocker
	Dispatcher         events.Dispatcher
	Metrics            *observability.Metrics
	Logger             *zap.Logger
	LockTTL            time.Duration
	GeolocationTimeout time.Duration
}

// PostInput is one chat submission. Geo and GeoFailure carry what the
// client's device reported; commands that need a position fail without one.
type PostInput struct {
	Body       string
	Internal   bool
	Geo        *domain.GeolocationSample
	GeoFailure geo.Failure
}

// PostResult describes what a submission produced.
type PostResult struct {
	Message *domain.TicketMessage
	Command chatcmd.Command
	Shift   *domain.Shift
	// CommandError is set when a command failed; Message then holds the
	// error reply.
	CommandError error
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		tickets:     deps.Tickets,
		interpreter: deps.Interpreter,
		locks:       deps.Locks,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		lockTTL:     deps.LockTTL,
		geoTimeout:  deps.GeolocationTimeout,
	}
}

// Post handles one chat submission on a ticket.
func (s *ChatService) Post(ctx context.Context, p domain.Principal, ticketID string, in PostInput) (*PostResult, error) {
	ticket, err := s.tickets.authorizedTicket(ctx, p, ticketID)
	if err != nil {
		return nil, err
	}
	// Checked before a command can touch shifts.
	if err := checkInternal(p, in.Internal); err != nil {
		return nil, err
	}
	if !chatcmd.IsCommand(in.Body) {
		msg, err := s.tickets.appendMessage(ctx, p, ticket, in.Body, in.Internal)
		if err != nil {
			return nil, err
		}
		return &PostResult{Message: msg}, nil
	}

	outcome, cmdErr := s.execute(ctx, p, in)
	result := &PostResult{CommandError: cmdErr}
	reply := ""
	if cmdErr != nil {
		reply = chatcmd.ErrorMessage(cmdErr)
	} else {
		result.Command = outcome.Command
		result.Shift = outcome.Shift
		reply = outcome.Message
		s.publishShiftEvent(ctx, p, outcome)
	}

	msg, err := s.tickets.appendMessage(ctx, p, ticket, reply, in.Internal)
	if err != nil {
		return nil, err
	}
	result.Message = msg
	return result, nil
}

func (s *ChatService) execute(ctx context.Context, p domain.Principal, in PostInput) (*chatcmd.Outcome, error) {
	key := p.OrgID + ":" + p.UserID
	token := uuid.NewString()
	if s.locks != nil {
		acquired, err := s.locks.Acquire(ctx, key, token, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("command lock unavailable", zap.String("user_id", p.UserID), zap.Error(err))
		case !acquired:
			s.metrics.RecordCommand("unknown", "in_progress")
			return nil, chatcmd.ErrCommandInProgress
		default:
			defer func() {
				if err := s.locks.Release(context.WithoutCancel(ctx), key, token); err != nil {
					s.logger.Warn("release command lock", zap.String("user_id", p.UserID), zap.Error(err))
				}
			}()
		}
	}

	locator := geo.WithTimeout(geo.Reported{Sample: in.Geo, Failure: in.GeoFailure}, s.geoTimeout)
	outcome, err := s.interpreter.Execute(ctx, p.OrgID, p.UserID, in.Body, locator)
	name := commandName(in.Body)
	switch {
	case err == nil:
		s.metrics.RecordCommand(name, "ok")
	case chatcmd.IsExpected(err):
		s.metrics.RecordCommand(name, "rejected")
		s.logger.Debug("command rejected", zap.String("user_id", p.UserID), zap.String("command", name), zap.Error(err))
	default:
		s.metrics.RecordCommand(name, "error")
		s.logger.Error("command failed", zap.String("user_id", p.UserID), zap.String("command", name), zap.Error(err))
	}
	return outcome, err
}

func (s *ChatService) publishShiftEvent(ctx context.Context, p domain.Principal, outcome *chatcmd.Outcome) {
	if s.dispatcher == nil || outcome.Shift == nil {
		return
	}
	shift := outcome.Shift
	payload := events.ShiftPayload{
		ShiftID:      shift.ID,
		UserID:       shift.UserID,
		EmployeeName: shift.EmployeeName,
	}
	var eventType events.EventType
	switch outcome.Command.(type) {
	case chatcmd.ShiftStart:
		eventType = events.EventShiftStarted
		payload.At = shift.StartAt
		payload.Geo = shift.StartGeo
	case chatcmd.ShiftEnd:
		eventType = events.EventShiftEnded
		if shift.EndAt != nil {
			payload.At = *shift.EndAt
		}
		payload.Geo = shift.EndGeo
		payload.DurationMinutes = shift.DurationMinutes
	default:
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, p.OrgID, shift.ID, &p.UserID, payload.At, payload))
}

func commandName(body string) string {
	cmd, err := chatcmd.Parse(body)
	if err != nil {
		return "malformed"
	}
	switch cmd.(type) {
	case chatcmd.ShiftStart:
		return "shift_start"
	case chatcmd.ShiftEnd:
		return "shift_end"
	case chatcmd.Help:
		return "help"
	default:
		return "unrecognized"
	}
}
