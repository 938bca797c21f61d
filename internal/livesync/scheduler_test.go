package livesync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunner) Run(context.Context, RunOptions) (*BatchResult, error) {
	r.runs.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &BatchResult{Success: true}, nil
}

func TestScheduler_RunsOnEveryTick(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	runner := &countingRunner{err: errors.New("db down")}
	s := &Scheduler{Runner: runner, Interval: 30 * time.Second, Clock: clock}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(stopped)
	}()

	wait, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	require.Eventually(t, func() bool { return runner.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(wait, 1))
	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return runner.runs.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-wait.Done():
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(2), runner.runs.Load())
}
