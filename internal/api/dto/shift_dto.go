package dto

import (
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// ShiftResponse exposes a shift record.
type ShiftResponse struct {
	ID              string                    `json:"id"`
	UserID          string                    `json:"user_id"`
	EmployeeName    string                    `json:"employee_name"`
	Status          domain.ShiftStatus        `json:"status"`
	StartAt         time.Time                 `json:"start_at"`
	StartGeo        *domain.GeolocationSample `json:"start_geo"`
	EndAt           *time.Time                `json:"end_at"`
	EndGeo          *domain.GeolocationSample `json:"end_geo"`
	DurationMinutes *int                      `json:"duration_minutes"`
	Duration        string                    `json:"duration,omitempty"`
}
