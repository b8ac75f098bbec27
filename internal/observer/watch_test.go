package observer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/brain/internal/types"
	"github.com/steveyegge/brain/internal/workflow"
)

func TestWatchPollsUntilCanceled(t *testing.T) {
	f := newFixture(t, workflow.StaticSource{workflow.Phase("sprint-1", types.PhaseIdle)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	err := f.obs.Watch(ctx, 5*time.Millisecond, nil, func(res *ObserveResult) {
		calls++
		assert.False(t, res.Halted)
		if calls == 3 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, f.log(t).Observations, 3)
}

func TestWatchKeepsReportingWhileHalted(t *testing.T) {
	f := newFixture(t, workflow.StaticSource{workflow.Phase("sprint-1", "BOGUS")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var results []*ObserveResult
	err := f.obs.Watch(ctx, time.Millisecond, nil, func(res *ObserveResult) {
		results = append(results, res)
		if len(results) == 2 {
			cancel()
		}
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Skipped)
	assert.True(t, results[1].Skipped, "second tick finds the observer halted")
	assert.Len(t, f.log(t).Violations, 1)
}

func TestWatchRejectsBadInterval(t *testing.T) {
	f := newFixture(t, workflow.StaticSource{})
	assert.Error(t, f.obs.Watch(context.Background(), 0, nil, nil))
}

func TestWatchChecksUnderLock(t *testing.T) {
	f := newFixture(t, workflow.StaticSource{workflow.Phase("sprint-1", types.PhaseIdle)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	held, acquired, released := false, 0, 0
	lock := func() (func(), error) {
		require.False(t, held, "lock taken twice")
		held = true
		acquired++
		return func() {
			held = false
			released++
		}, nil
	}

	calls := 0
	err := f.obs.Watch(ctx, time.Millisecond, lock, func(res *ObserveResult) {
		calls++
		if calls == 2 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 2, acquired)
	assert.Equal(t, 2, released)
	assert.False(t, held)
}

func TestWatchSkipsCheckWhenLockBusy(t *testing.T) {
	f := newFixture(t, workflow.StaticSource{workflow.Phase("sprint-1", types.PhaseIdle)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	lock := func() (func(), error) {
		attempts++
		if attempts <= 2 {
			return nil, errors.New("another brain writer is running")
		}
		return func() {}, nil
	}

	var results []*ObserveResult
	err := f.obs.Watch(ctx, time.Millisecond, lock, func(res *ObserveResult) {
		results = append(results, res)
		cancel()
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	require.Len(t, results, 1)
	assert.Len(t, f.log(t).Observations, 1, "skipped checks record nothing")
}
