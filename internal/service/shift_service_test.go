package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

func TestShiftServiceList(t *testing.T) {
	store := &fakeShifts{}
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.Shift{OrgID: "org-1", UserID: "user-1", Status: domain.ShiftStatusOpen, StartAt: monday9}))
	require.NoError(t, store.Create(ctx, &domain.Shift{OrgID: "org-1", UserID: "user-2", Status: domain.ShiftStatusOpen, StartAt: monday9}))
	require.NoError(t, store.Create(ctx, &domain.Shift{OrgID: "org-2", UserID: "user-9", Status: domain.ShiftStatusOpen, StartAt: monday9}))
	svc := NewShiftService(store)

	all, err := svc.List(ctx, admin, ShiftListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.List(ctx, admin, ShiftListFilter{UserID: ptr("user-2")})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "user-2", mine[0].UserID)

	closed, err := svc.List(ctx, admin, ShiftListFilter{Status: ptr(domain.ShiftStatusClosed)})
	require.NoError(t, err)
	assert.Empty(t, closed)

	_, err = svc.List(ctx, admin, ShiftListFilter{Status: ptr(domain.ShiftStatus("pausa"))})
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)

	_, err = svc.List(ctx, user, ShiftListFilter{})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 403, de.HTTPStatus)
}

func TestShiftServiceCurrent(t *testing.T) {
	store := &fakeShifts{}
	ctx := context.Background()
	svc := NewShiftService(store)

	current, err := svc.Current(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, current)

	require.NoError(t, store.Create(ctx, &domain.Shift{OrgID: "org-1", UserID: "user-1", EmployeeName: "Mario Rossi", Status: domain.ShiftStatusOpen, StartAt: monday9}))
	current, err = svc.Current(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "Mario Rossi", current.EmployeeName)
}
