package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler()
	require.NoError(t, err)
	s.Start(context.Background())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestScheduler_ScheduleOnce(t *testing.T) {
	t.Run("runs after the delay", func(t *testing.T) {
		s := newStartedScheduler(t)
		var fired atomic.Int32

		id, err := s.ScheduleOnce("reconnect", 50*time.Millisecond, func() { fired.Add(1) })
		require.NoError(t, err)
		require.NotEmpty(t, id)

		require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int32(1), fired.Load())
	})

	t.Run("cancelled job never runs", func(t *testing.T) {
		s := newStartedScheduler(t)
		var fired atomic.Int32

		id, err := s.ScheduleOnce("reconnect", 200*time.Millisecond, func() { fired.Add(1) })
		require.NoError(t, err)
		s.Cancel(id)

		time.Sleep(400 * time.Millisecond)
		assert.Zero(t, fired.Load())
	})

	t.Run("zero delay runs immediately", func(t *testing.T) {
		s := newStartedScheduler(t)
		done := make(chan struct{})

		_, err := s.ScheduleOnce("now", 0, func() { close(done) })
		require.NoError(t, err)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	})
}

func TestScheduler_CancelUnknown(t *testing.T) {
	s := newStartedScheduler(t)
	s.Cancel("not-a-uuid")
	s.Cancel("6f1c1f0e-5d7c-4a4e-9d89-3c7f1f0b8e11")
	assert.Zero(t, s.Pending())
}
