package sla

import (
	"fmt"
	"time"
)

// FormatRemaining renders a minute count compactly: 45m, 2h 5m, 3g 4h.
func FormatRemaining(minutes int) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	case minutes < 24*60:
		h, m := minutes/60, minutes%60
		if m > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	default:
		d, h := minutes/(24*60), (minutes%(24*60))/60
		if h > 0 {
			return fmt.Sprintf("%dg %dh", d, h)
		}
		return fmt.Sprintf("%dg", d)
	}
}

// HoursRemaining is the number of whole hours left before due, never negative.
func HoursRemaining(due, reference time.Time) int {
	left := due.Sub(reference)
	if left <= 0 {
		return 0
	}
	return int(left / time.Hour)
}
