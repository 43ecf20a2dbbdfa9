package kpfu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeoutError(t *testing.T) {
	require.NoError(t, timeoutError(context.Background(), nil))

	plain := errors.New("node not found")
	require.Equal(t, plain, timeoutError(context.Background(), plain))

	expired, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-expired.Done()
	err := timeoutError(expired, errors.New("could not wait"))
	require.ErrorIs(t, err, ErrTimeout)

	err = timeoutError(context.Background(), context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestStepError(t *testing.T) {
	cause := timeoutError(context.Background(), context.DeadlineExceeded)

	err := stepError(context.Background(), ErrAuthFailure, "login form", cause)
	require.ErrorIs(t, err, ErrAuthFailure)
	require.ErrorIs(t, err, ErrTimeout)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "login form")

	err = stepError(context.Background(), ErrNotFound, "wait for table", errors.New("no node"))
	require.ErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrTimeout)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err = stepError(cancelled, ErrAuthFailure, "login form", cause)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrAuthFailure)
}

func TestConfigDefaults(t *testing.T) {
	var config Config
	config.FillDefaults()
	require.Equal(t, DefaultConfig(), config)
	require.NoError(t, config.Validate())

	config.TimeoutSeconds = -1
	require.Error(t, config.Validate())
}

func TestCohortOutcomeString(t *testing.T) {
	require.Equal(t, "default", CohortDefault.String())
	require.Equal(t, "selected", CohortSelected.String())
	require.Equal(t, "failed", CohortFailed.String())
}
