package chatcmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// timestampLayout mirrors the it-IT locale rendering used across chat messages.
const timestampLayout = "02/01/2006, 15:04:05"

// FormatShiftDuration renders a whole number of minutes in Italian.
// Callers round; negative input is treated as zero.
func FormatShiftDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	hours, rest := minutes/60, minutes%60
	unit := "ore"
	if hours == 1 {
		unit = "ora"
	}
	switch {
	case hours == 0:
		return fmt.Sprintf("%d minuti", rest)
	case rest == 0:
		return fmt.Sprintf("%d %s", hours, unit)
	default:
		return fmt.Sprintf("%d %s e %d minuti", hours, unit, rest)
	}
}

// FormatGeolocation renders a sample: six decimals, accuracy in whole meters.
func FormatGeolocation(s domain.GeolocationSample) string {
	return fmt.Sprintf("📍 Lat: %.6f, Lon: %.6f (±%dm)", s.Lat, s.Lon, int(math.Round(s.Accuracy)))
}

// DurationMinutes is the shift length rounded to the nearest minute.
func DurationMinutes(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}

// FormatTimestamp renders t in loc the way chat messages show instants.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timestampLayout)
}
