package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var typedNil *int
	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(typedNil) })
	require.NotPanics(t, func() { NotNil(1) })
	require.NotPanics(t, func() { NotNil(&struct{}{}) })
}

func TestNotEmptyStr(t *testing.T) {
	require.Panics(t, func() { NotEmptyStr("") })
	require.NotPanics(t, func() { NotEmptyStr("https://moodle.example.edu") })
}
