package moodle

import (
	"context"
	"errors"
	devenv "moodlefetch/dev/env"
	"moodlefetch/internal/components/telemetry"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLivePortal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live portal test in short mode")
	}
	cfg, err := devenv.GetStateConfig[devenv.MoodleTestConfig](devenv.MOODLE_TEST_CONFIG)
	if errors.Is(err, os.ErrNotExist) {
		t.Skip("no live portal configured")
	}
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := NewClient(ClientOptions{
		Telemetry:         telemetry.SlogAPI{},
		RequestsPerSecond: 2,
	})
	require.NoError(t, err)

	res := client.Login(ctx, cfg.BaseUrl, cfg.Username, cfg.Password)
	require.NoError(t, res.Err())
	require.True(t, client.Session().IsAuthenticated())

	grades, err := client.Grades(ctx).Unwrap()
	require.NoError(t, err)
	require.NotZero(t, grades.Len())
	if cfg.ExpectCourse != "" {
		_, ok := grades.Get(cfg.ExpectCourse)
		require.True(t, ok, "expected a grade for %s", cfg.ExpectCourse)
	}

	courses, err := client.Courses(ctx).Unwrap()
	require.NoError(t, err)
	t.Log("courses", courses)

	require.NoError(t, client.Logout(ctx).Err())
	require.False(t, client.Session().IsAuthenticated())
}
