package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-desk/internal/chatcmd"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/geo"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

type chatFixture struct {
	*ticketFixture
	chat   *ChatService
	shifts *fakeShifts
	locks  *fakeLocker
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	tf := newTicketFixture(t, seededTicket("t-1", "user-1", monday9.Add(8*time.Hour)))
	shifts := &fakeShifts{}
	locks := &fakeLocker{}
	chat := NewChatService(ChatDependencies{
		Tickets:            tf.svc,
		Interpreter:        chatcmd.NewInterpreter(shifts, tf.clock, time.UTC),
		Locks:              locks,
		Dispatcher:         tf.dispatcher,
		Metrics:            observability.NewMetrics(),
		LockTTL:            time.Second,
		GeolocationTimeout: time.Second,
	})
	return &chatFixture{ticketFixture: tf, chat: chat, shifts: shifts, locks: locks}
}

var office = &domain.GeolocationSample{Lat: 41.902782, Lon: 12.496366, Accuracy: 15, CapturedAt: monday9}

func TestPostPlainMessage(t *testing.T) {
	f := newChatFixture(t)

	res, err := f.chat.Post(context.Background(), user, "t-1", PostInput{Body: "buongiorno"})
	require.NoError(t, err)
	assert.Nil(t, res.Command)
	assert.Equal(t, "buongiorno", res.Message.Body)
	assert.Empty(t, f.shifts.shifts)
}

func TestPostShiftStartAndEnd(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	res, err := f.chat.Post(ctx, user, "t-1", PostInput{Body: "/inizio_giornata Mario Rossi", Geo: office})
	require.NoError(t, err)
	require.NoError(t, res.CommandError)
	assert.Equal(t, chatcmd.ShiftStart{EmployeeName: "Mario Rossi", FirstName: "Mario", LastName: "Rossi"}, res.Command)
	assert.Contains(t, res.Message.Body, "✅ **Turno iniziato**")
	assert.Contains(t, res.Message.Body, "📍 Lat: 41.902782, Lon: 12.496366 (±15m)")
	assert.Equal(t, "user-1", res.Message.AuthorID)

	f.clock.Advance(90 * time.Minute)
	res, err = f.chat.Post(ctx, user, "t-1", PostInput{Body: "/fine_giornata", Geo: office})
	require.NoError(t, err)
	require.NoError(t, res.CommandError)
	assert.Equal(t, domain.ShiftStatusClosed, res.Shift.Status)
	assert.Contains(t, res.Message.Body, "⏱️ **Durata:** 1 ora e 30 minuti")

	assert.Equal(t, []events.EventType{
		events.EventShiftStarted,
		events.EventTicketMessageAdded,
		events.EventShiftEnded,
		events.EventTicketMessageAdded,
	}, f.dispatcher.types())
	// only the replies are stored, never the command text
	require.Len(t, f.messages.items, 2)
	for _, m := range f.messages.items {
		assert.NotContains(t, m.Body, "/inizio_giornata Mario Rossi")
	}
	assert.Equal(t, 2, f.locks.released)
	assert.Empty(t, f.locks.held)
}

func TestPostCommandErrorsBecomeChatReplies(t *testing.T) {
	cases := []struct {
		name  string
		input PostInput
		want  string
		err   error
	}{
		{"no open shift", PostInput{Body: "/fine_giornata", Geo: office}, "Non hai nessun turno aperto da chiudere.", domain.ErrNoOpenShift},
		{"malformed", PostInput{Body: "/inizio_giornata Mario"}, "Formato comando non valido. Usa: /inizio_giornata Nome Cognome", chatcmd.ErrMalformedCommand},
		{"unrecognized", PostInput{Body: "/ferie domani"}, "Comando non riconosciuto", chatcmd.ErrUnrecognizedCommand},
		{"geo denied", PostInput{Body: "/inizio_giornata Mario Rossi", GeoFailure: geo.FailureDenied}, "Accesso alla geolocalizzazione negato", geo.ErrDenied},
		{"geo missing", PostInput{Body: "/inizio_giornata Mario Rossi"}, "Posizione non disponibile", geo.ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newChatFixture(t)
			res, err := f.chat.Post(context.Background(), user, "t-1", tc.input)
			require.NoError(t, err)
			assert.ErrorIs(t, res.CommandError, tc.err)
			assert.Equal(t, "❌ **Errore comando**\n\n"+tc.want+"\n\nDigita `/help` per vedere i comandi disponibili.", res.Message.Body)
			assert.Empty(t, f.shifts.shifts)
		})
	}
}

func TestPostInternalCommandByUserIsRefusedUpFront(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.Post(context.Background(), user, "t-1", PostInput{Body: "/inizio_giornata Mario Rossi", Geo: office, Internal: true})
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 403, de.HTTPStatus)

	assert.Empty(t, f.shifts.shifts)
	assert.Empty(t, f.messages.items)
	assert.Empty(t, f.dispatcher.types())
	assert.Zero(t, f.locks.released)
}

func TestPostInternalCommandByAdmin(t *testing.T) {
	f := newChatFixture(t)

	res, err := f.chat.Post(context.Background(), admin, "t-1", PostInput{Body: "/inizio_giornata Anna Maria Bianchi", Geo: office, Internal: true})
	require.NoError(t, err)
	require.NoError(t, res.CommandError)
	assert.Equal(t, chatcmd.ShiftStart{EmployeeName: "Anna Maria Bianchi", FirstName: "Anna", LastName: "Maria Bianchi"}, res.Command)
	assert.True(t, res.Message.IsInternal)
	require.Len(t, f.shifts.shifts, 1)
	assert.Equal(t, "admin-1", f.shifts.shifts[0].UserID)
}

func TestPostHelp(t *testing.T) {
	f := newChatFixture(t)
	res, err := f.chat.Post(context.Background(), user, "t-1", PostInput{Body: "/HELP"})
	require.NoError(t, err)
	assert.Equal(t, chatcmd.HelpText(), res.Message.Body)
}

func TestPostAlreadyOpenShift(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.chat.Post(ctx, user, "t-1", PostInput{Body: "/inizio_giornata Mario Rossi", Geo: office})
	require.NoError(t, err)
	res, err := f.chat.Post(ctx, user, "t-1", PostInput{Body: "/inizio_giornata Mario Rossi", Geo: office})
	require.NoError(t, err)
	assert.ErrorIs(t, res.CommandError, domain.ErrShiftAlreadyOpen)
	assert.Contains(t, res.Message.Body, "Hai già un turno aperto")
	assert.Len(t, f.shifts.shifts, 1)
}

func TestPostCommandWhileLocked(t *testing.T) {
	f := newChatFixture(t)
	f.locks.held = map[string]string{"org-1:user-1": "someone-else"}

	res, err := f.chat.Post(context.Background(), user, "t-1", PostInput{Body: "/inizio_giornata Mario Rossi", Geo: office})
	require.NoError(t, err)
	assert.ErrorIs(t, res.CommandError, chatcmd.ErrCommandInProgress)
	assert.Empty(t, f.shifts.shifts)
}

func TestPostCommandLockOutageIsTolerated(t *testing.T) {
	f := newChatFixture(t)
	f.locks.err = errors.New("redis down")

	res, err := f.chat.Post(context.Background(), user, "t-1", PostInput{Body: "/inizio_giornata Mario Rossi", Geo: office})
	require.NoError(t, err)
	assert.NoError(t, res.CommandError)
	assert.Len(t, f.shifts.shifts, 1)
}

func TestConcurrentStartsOpenOneShift(t *testing.T) {
	f := newChatFixture(t)
	// no lock: the store alone must hold the invariant
	f.chat.locks = nil

	var wg sync.WaitGroup
	results := make([]*PostResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.chat.Post(context.Background(), user, "t-1", PostInput{Body: "/inizio_giornata Mario Rossi", Geo: office})
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, res := range results {
		require.NotNil(t, res)
		if res.CommandError == nil {
			ok++
		} else {
			assert.ErrorIs(t, res.CommandError, domain.ErrShiftAlreadyOpen)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, f.shifts.shifts, 1)
}

func TestPostRequiresTicketAccess(t *testing.T) {
	f := newChatFixture(t)
	_, err := f.chat.Post(context.Background(), other, "t-1", PostInput{Body: "/inizio_giornata Luigi Verdi", Geo: office})
	assert.Error(t, err)
	assert.Empty(t, f.shifts.shifts)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "shift_start", commandName("/inizio_giornata A B"))
	assert.Equal(t, "shift_end", commandName("/fine_giornata"))
	assert.Equal(t, "help", commandName("/help"))
	assert.Equal(t, "malformed", commandName("/inizio_giornata A"))
	assert.Equal(t, "unrecognized", commandName("/boh"))
}
