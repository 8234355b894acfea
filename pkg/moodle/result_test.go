package moodle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	ok := Success(42)
	require.True(t, ok.Ok())
	require.Equal(t, 42, ok.Value())
	require.Nil(t, ok.Failure())
	require.NoError(t, ok.Err())

	value, err := ok.Unwrap()
	require.NoError(t, err)
	require.Equal(t, 42, value)

	failed := Failure[int](requestFailed("grades", 500))
	require.False(t, failed.Ok())
	require.Zero(t, failed.Value())
	require.Equal(t, KIND_REQUEST_FAILED, failed.Failure().Kind)
	require.Equal(t, 500, failed.Failure().Status)
	require.ErrorIs(t, failed.Err(), ErrRequestFailed)
	require.EqualError(t, failed.Err(), "moodle: grades: request failed, status=500")

	// a failure always carries an error
	empty := Failure[string](nil)
	require.False(t, empty.Ok())
	require.ErrorIs(t, empty.Err(), ErrInternal)
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("fetch grades: %w", newError(KIND_TRANSPORT, "grades", cause))

	require.ErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrParse)
	require.ErrorIs(t, err, cause)
	require.True(t, IsKind(err, KIND_TRANSPORT))
	require.False(t, IsKind(err, KIND_PARSE))
	require.False(t, IsKind(cause, KIND_TRANSPORT))
	require.EqualError(t, err, "fetch grades: moodle: grades: connection reset")

	require.EqualError(t, ErrNotAuthenticated, "moodle: not authenticated")
	require.Equal(t, "authentication rejected", KIND_AUTHENTICATION_REJECTED.String())
}
