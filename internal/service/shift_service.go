package service

import (
	"context"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// ShiftService exposes shift records to the HTTP layer. Shifts are opened
// and closed only through chat commands.
type ShiftService struct {
	shifts repository.ShiftRepository
}

// ShiftListFilter narrows an admin listing.
type ShiftListFilter struct {
	UserID *string
	Status *domain.ShiftStatus
	Limit  int
	Offset int
}

// NewShiftService constructs the service.
func NewShiftService(shifts repository.ShiftRepository) *ShiftService {
	return &ShiftService{shifts: shifts}
}

// List returns shifts of the caller's organization. Admins only.
func (s *ShiftService) List(ctx context.Context, p domain.Principal, filter ShiftListFilter) ([]domain.Shift, error) {
	if !p.Role.IsAdmin() {
		return nil, errorutil.NewForbidden("only administrators can list shifts")
	}
	if filter.Status != nil && *filter.Status != domain.ShiftStatusOpen && *filter.Status != domain.ShiftStatusClosed {
		return nil, errorutil.NewValidationError("unknown shift status", map[string]any{"status": *filter.Status})
	}
	return s.shifts.List(ctx, repository.ShiftFilter{
		OrgID:  p.OrgID,
		UserID: filter.UserID,
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Current returns the caller's open shift, or nil.
func (s *ShiftService) Current(ctx context.Context, p domain.Principal) (*domain.Shift, error) {
	return s.shifts.FindOpen(ctx, p.OrgID, p.UserID)
}
