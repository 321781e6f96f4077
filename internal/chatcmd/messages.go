package chatcmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/geo"
)

var (
	// ErrUnrecognizedCommand is returned when slash text matches no grammar.
	ErrUnrecognizedCommand = errors.New("unrecognized command")
	// ErrCommandInProgress is returned while another command of the same
	// user is still running.
	ErrCommandInProgress = errors.New("command already in progress")
)

// HelpText lists the available commands.
func HelpText() string {
	return strings.TrimSpace(`
**Comandi disponibili:**

` + "`/inizio_giornata Nome Cognome`" + `
- Registra l'inizio del turno di lavoro
- Richiede geolocalizzazione per tracciare la posizione
- Esempio: ` + "`/inizio_giornata Mario Rossi`" + `

` + "`/fine_giornata`" + `
- Registra la fine del turno di lavoro
- Calcola automaticamente la durata del turno
- Richiede geolocalizzazione per tracciare la posizione

**Note:**
- I comandi richiedono l'accesso alla geolocalizzazione
- È possibile avere solo un turno aperto alla volta
- I dati di geolocalizzazione sono visibili solo agli amministratori della tua organizzazione
`)
}

func startConfirmation(shift *domain.Shift, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("✅ **Turno iniziato**\n\n")
	fmt.Fprintf(&b, "👤 **Dipendente:** %s\n", shift.EmployeeName)
	fmt.Fprintf(&b, "🕐 **Orario:** %s\n", FormatTimestamp(shift.StartAt, loc))
	if shift.StartGeo != nil {
		b.WriteString(FormatGeolocation(*shift.StartGeo))
	}
	b.WriteString("\n\nUsa `/fine_giornata` per terminare il turno.")
	return b.String()
}

func endConfirmation(shift *domain.Shift, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("🏁 **Turno terminato**\n\n")
	fmt.Fprintf(&b, "👤 **Dipendente:** %s\n", shift.EmployeeName)
	fmt.Fprintf(&b, "🕐 **Inizio:** %s\n", FormatTimestamp(shift.StartAt, loc))
	if shift.EndAt != nil {
		fmt.Fprintf(&b, "🕐 **Fine:** %s\n", FormatTimestamp(*shift.EndAt, loc))
	}
	if shift.DurationMinutes != nil {
		fmt.Fprintf(&b, "⏱️ **Durata:** %s\n", FormatShiftDuration(*shift.DurationMinutes))
	}
	if shift.EndGeo != nil {
		b.WriteString(FormatGeolocation(*shift.EndGeo))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Cause returns the user-facing explanation of a command failure.
func Cause(err error) string {
	switch {
	case errors.Is(err, ErrMalformedCommand):
		return "Formato comando non valido. Usa: /inizio_giornata Nome Cognome"
	case errors.Is(err, ErrUnrecognizedCommand):
		return "Comando non riconosciuto"
	case errors.Is(err, domain.ErrShiftAlreadyOpen):
		return "Hai già un turno aperto. Chiudi il turno corrente prima di iniziarne uno nuovo."
	case errors.Is(err, domain.ErrNoOpenShift):
		return "Non hai nessun turno aperto da chiudere."
	case errors.Is(err, ErrCommandInProgress):
		return "Un altro comando è in elaborazione. Riprova tra qualche secondo."
	case errors.Is(err, geo.ErrDenied):
		return "Accesso alla geolocalizzazione negato"
	case errors.Is(err, geo.ErrTimeout):
		return "Timeout nella richiesta di geolocalizzazione"
	case errors.Is(err, geo.ErrUnavailable):
		return "Posizione non disponibile"
	default:
		return "Errore sconosciuto"
	}
}

// ErrorMessage wraps a command failure as a chat message.
func ErrorMessage(err error) string {
	return "❌ **Errore comando**\n\n" + Cause(err) + "\n\nDigita `/help` per vedere i comandi disponibili."
}

// IsExpected reports whether err is an anticipated business or input
// outcome rather than a collaborator fault.
func IsExpected(err error) bool {
	return errors.Is(err, ErrMalformedCommand) ||
		errors.Is(err, ErrUnrecognizedCommand) ||
		errors.Is(err, ErrCommandInProgress) ||
		errors.Is(err, domain.ErrShiftAlreadyOpen) ||
		errors.Is(err, domain.ErrNoOpenShift) ||
		errors.Is(err, geo.ErrDenied) ||
		errors.Is(err, geo.ErrTimeout) ||
		errors.Is(err, geo.ErrUnavailable)
}
