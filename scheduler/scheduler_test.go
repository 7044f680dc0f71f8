package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func counter(n *int32) Job {
	return func(context.Context) error {
		atomic.AddInt32(n, 1)
		return nil
	}
}

func TestEvery_Fires(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int32
	s.Every("tick", 20*time.Millisecond, false, counter(&count))

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestEvery_Immediate(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int32
	s.Every("now", time.Hour, true, counter(&count))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&count) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), s.Runs("now"))
}

func TestEvery_Replaces(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count1, count2 int32
	s.Every("task", 20*time.Millisecond, false, counter(&count1))
	time.Sleep(30 * time.Millisecond)
	s.Every("task", 20*time.Millisecond, false, counter(&count2))
	time.Sleep(80 * time.Millisecond)

	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old job must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
	assert.Equal(t, []string{"task"}, s.Jobs())
}

func TestEvery_IgnoresBadInterval(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()
	s.Every("bad", 0, true, func(context.Context) error { return nil })
	assert.Empty(t, s.Jobs())
}

func TestRemove(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int32
	s.Every("r", 10*time.Millisecond, false, counter(&count))
	s.Remove("r")
	snap := atomic.LoadInt32(&count)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&count), snap+1)
	assert.Empty(t, s.Jobs())
	assert.Zero(t, s.Runs("r"))
}

func TestJob_ErrorAndPanicDoNotKillLoop(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int32
	s.Every("flaky", 10*time.Millisecond, true, func(context.Context) error {
		n := atomic.AddInt32(&count, 1)
		if n == 1 {
			panic("boom")
		}
		return errors.New("still broken")
	})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&count) >= 3 },
		time.Second, 5*time.Millisecond)
}

func TestStop_CancelsContextAndWaits(t *testing.T) {
	s := New(zap.NewNop())

	var cancelled int32
	started := make(chan struct{})
	s.Every("long", time.Hour, true, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		atomic.StoreInt32(&cancelled, 1)
		return ctx.Err()
	})
	<-started
	s.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&cancelled))

	// Registration after Stop is a no-op.
	s.Every("late", time.Millisecond, true, func(context.Context) error { return nil })
	assert.NotContains(t, s.Jobs(), "late")
}
