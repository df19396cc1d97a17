package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_InitialTicksAndFinal(t *testing.T) {
	var logs syncBuffer
	var calls atomic.Int64
	progress := func() Progress {
		n := calls.Add(1)
		return Progress{Read: n, Computed: n, Written: n, Workers: 2}
	}
	r := NewReporter(progress, 10*time.Millisecond, testLogger(&logs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	require.Eventually(t, func() bool { return logs.count(t, "progress") >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, logs.count(t, "final progress"))
	lines := logs.lines(t)
	last := lines[len(lines)-1]
	assert.Equal(t, "final progress", last["message"])
	assert.EqualValues(t, 2, last["workers"])
}

func TestReporter_SetInterval(t *testing.T) {
	var logs syncBuffer
	r := NewReporter(func() Progress { return Progress{} }, time.Hour, testLogger(&logs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	require.Eventually(t, func() bool { return logs.count(t, "progress") == 1 }, time.Second, 5*time.Millisecond)

	r.SetInterval(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, r.Interval())
	require.Eventually(t, func() bool { return logs.count(t, "progress") >= 3 }, time.Second, 5*time.Millisecond)

	r.SetInterval(0)
	assert.Equal(t, 5*time.Millisecond, r.Interval(), "non-positive interval is ignored")
}
