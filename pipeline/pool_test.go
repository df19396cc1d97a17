package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/demandflow/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingPool starts workers that wait for cancellation and records exits.
func blockingPool(t *testing.T) (*Pool, *State, func() []int) {
	t.Helper()
	state := &State{}
	var mu sync.Mutex
	var exited []int

	run := func(ctx context.Context, id int) error {
		<-ctx.Done()
		return nil
	}
	onExit := func(id int, _ error) {
		mu.Lock()
		exited = append(exited, id)
		mu.Unlock()
	}
	p := newPool(state, run, onExit, logger.Nop())
	return p, state, func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), exited...)
	}
}

func TestPool_ResizeBeforeActivate(t *testing.T) {
	p, _, _ := blockingPool(t)
	assert.ErrorIs(t, p.Resize(2), ErrNotRunning)
}

func TestPool_ResizeRejectsNonPositive(t *testing.T) {
	p, _, _ := blockingPool(t)
	p.activate(context.Background())
	assert.Error(t, p.Resize(0))
	assert.Error(t, p.Resize(-3))
}

func TestPool_ScaleUpThenDownOldestFirst(t *testing.T) {
	p, _, exited := blockingPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	p.activate(ctx)

	require.NoError(t, p.Resize(3))
	assert.Equal(t, []int{0, 1, 2}, p.IDs())

	require.NoError(t, p.Resize(5))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, p.IDs())

	require.NoError(t, p.Resize(2))
	assert.Equal(t, []int{3, 4}, p.IDs())

	require.Eventually(t, func() bool { return len(exited()) == 3 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []int{0, 1, 2}, exited())

	require.NoError(t, p.Resize(2)) // no-op
	assert.Equal(t, 2, p.Size())

	cancel()
	p.freeze()
	require.NoError(t, p.Wait())
	assert.Equal(t, 0, p.Size())
	assert.Len(t, exited(), 5)
}

func TestPool_FrozenAfterReadingFinished(t *testing.T) {
	p, state, _ := blockingPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.activate(ctx)

	require.NoError(t, p.Resize(2))
	p.freeze()
	assert.True(t, state.ReadingFinished())

	assert.ErrorIs(t, p.Resize(4), ErrRosterFrozen)
	assert.ErrorIs(t, p.Resize(1), ErrRosterFrozen)
	assert.Equal(t, 2, p.Size())

	cancel()
	require.NoError(t, p.Wait())
}

func TestPool_ConcurrentResizesKeepCount(t *testing.T) {
	p, _, _ := blockingPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	p.activate(ctx)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = p.Resize(n)
		}(i)
	}
	wg.Wait()
	require.NoError(t, p.Resize(4))
	assert.Equal(t, 4, p.Size())

	cancel()
	p.freeze()
	require.NoError(t, p.Wait())
}
