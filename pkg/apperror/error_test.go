package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := New(http.StatusNotFound, "not_found", "Table 'x' not found")
	assert.Equal(t, "not_found: Table 'x' not found", err.Error())

	wrapped := err.WithInternal(errors.New("row missing"))
	assert.Contains(t, wrapped.Error(), "row missing")
}

func TestErrorIs(t *testing.T) {
	err := ErrNotFound.WithMessage("table 'svc.db.t1' not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))

	deep := ErrConflict.WithInternal(errors.New("duplicate key"))
	assert.True(t, errors.Is(deep, ErrConflict))
}

func TestWithMessagePreservesStatus(t *testing.T) {
	err := ErrIllegalState.WithMessage("table is not empty")
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "illegal_state", err.Code)
	assert.Equal(t, "table is not empty", err.Message)
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("table", "svc.db.t1")
	require.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
	assert.Equal(t, "table 'svc.db.t1' not found", err.Message)
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("pq: duplicate key value")
	err := ErrDatabase.WithInternal(inner)
	assert.Equal(t, inner, errors.Unwrap(err))
}
