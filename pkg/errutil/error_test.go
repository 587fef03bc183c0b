package errutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructorsWrapCause(t *testing.T) {
	cause := errors.New("boom")
	err := NotFound("duel 7 not found", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, StatusNotFound, StatusOf(err))
	require.Equal(t, "[NOT_FOUND] duel 7 not found: boom", err.Error())
}

func TestStatusOfSentinelThroughWrap(t *testing.T) {
	busy := NewSentinel(StatusConflict, "duel is busy")
	err := fmt.Errorf("accept duel 7: %w", busy)

	require.ErrorIs(t, err, busy)
	require.Equal(t, StatusConflict, StatusOf(err))
	require.True(t, IsExpected(err))
}

func TestStatusOfPlainError(t *testing.T) {
	require.Equal(t, StatusInternal, StatusOf(errors.New("db down")))
	require.False(t, IsExpected(errors.New("db down")))
	require.Equal(t, CoreStatus(""), StatusOf(nil))
}

func TestWithDetails(t *testing.T) {
	err := New(StatusBadRequest, "invalid reward range", WithDetails(Detail{Field: "min", Message: "must be <= max"}))

	var be BaseError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Details, 1)
	require.Nil(t, be.Err)
}
