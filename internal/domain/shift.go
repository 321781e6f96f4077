package domain

import (
	"errors"
	"time"
)

// ShiftStatus is the lifecycle state of a work shift.
type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "aperto"
	ShiftStatusClosed ShiftStatus = "chiuso"
)

var (
	// ErrShiftAlreadyOpen is returned when a user starts a shift while one is open.
	ErrShiftAlreadyOpen = errors.New("shift already open")
	// ErrNoOpenShift is returned when a user ends a shift without an open one.
	ErrNoOpenShift = errors.New("no open shift")
)

// GeolocationSample is a position captured at a shift boundary.
type GeolocationSample struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Accuracy   float64   `json:"accuracy"`
	CapturedAt time.Time `json:"captured_at"`
}

// Shift is a tracked work session. At most one shift per (OrgID, UserID) is open.
type Shift struct {
	ID              string
	OrgID           string
	UserID          string
	EmployeeName    string
	StartAt         time.Time
	StartGeo        *GeolocationSample
	EndAt           *time.Time
	EndGeo          *GeolocationSample
	Status          ShiftStatus
	DurationMinutes *int
	CreatedAt       time.Time
}
