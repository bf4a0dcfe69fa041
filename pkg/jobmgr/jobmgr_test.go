package jobmgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectsConcurrentJob(t *testing.T) {
	m := NewManager(zerolog.Nop())
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, m.Go(context.Background(), "sync", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	err := m.Run(context.Background(), "sync", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrRunning)
	assert.Equal(t, []string{"sync"}, m.Running())
	assert.Equal(t, "Running jobs: sync", m.Status())

	close(release)
	assert.Eventually(t, func() bool { return len(m.Running()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestRunReturnsJobError(t *testing.T) {
	m := NewManager(zerolog.Nop())
	boom := errors.New("boom")
	err := m.Run(context.Background(), "x", func(ctx context.Context) error { return boom })
	assert.Same(t, boom, err)
	assert.Equal(t, "No jobs are running.", m.Status())
}

func TestStopCancelsJob(t *testing.T) {
	m := NewManager(zerolog.Nop())
	done := make(chan error, 1)
	require.NoError(t, m.Go(context.Background(), "long", func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return nil
	}))
	require.NoError(t, m.Stop("long"))
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, m.Stop("long"), ErrNotRunning)
}
