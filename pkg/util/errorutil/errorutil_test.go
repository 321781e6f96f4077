package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	forbidden := NewForbidden("nope")
	assert.Same(t, forbidden, ToDomainError(fmt.Errorf("wrapped: %w", forbidden)))

	notFound := ToDomainError(fmt.Errorf("get ticket: %w", pgx.ErrNoRows))
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)
	assert.ErrorIs(t, notFound, pgx.ErrNoRows)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", internal.Code)
	assert.Equal(t, "internal server error: boom", internal.Error())
}

func TestToDomainErrorConsultsMappers(t *testing.T) {
	skip := func(error) *DomainError { return nil }
	conflict := func(err error) *DomainError {
		if errors.Is(err, errSentinel) {
			return NewConflict("taken", map[string]any{"k": "v"}).Wrap(err)
		}
		return nil
	}

	de := ToDomainError(fmt.Errorf("ctx: %w", errSentinel), skip, conflict)
	require.NotNil(t, de)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	assert.Equal(t, "CONFLICT", de.Code)
	assert.ErrorIs(t, de, errSentinel)

	assert.Equal(t, "INTERNAL_ERROR", ToDomainError(errors.New("other"), conflict).Code)
}

func TestWrapDoesNotMutateTemplate(t *testing.T) {
	base := NewUnprocessable("BAD_POLICY", "policy unusable", nil)
	wrapped := base.Wrap(errSentinel)
	assert.Nil(t, base.Err)
	assert.Equal(t, http.StatusUnprocessableEntity, wrapped.HTTPStatus)
	assert.Equal(t, "policy unusable: sentinel", wrapped.Error())
}
