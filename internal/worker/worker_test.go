package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/worker"
)

func TestPool_SubmitAndShutdown(t *testing.T) {
	pool := worker.NewPool(newTestLogger())

	var ran atomic.Int64
	stopped := make(chan struct{})

	pool.Submit(func(ctx context.Context) {
		ran.Add(1)
		<-ctx.Done()
		close(stopped)
	})

	require.Eventually(t, func() bool {
		return ran.Load() == 1
	}, time.Second, time.Millisecond)

	pool.Shutdown(time.Second)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("task did not observe pool cancellation")
	}
}

func TestPool_SubmitWithTimeout(t *testing.T) {
	pool := worker.NewPool(newTestLogger())
	defer pool.Shutdown(time.Second)

	expired := make(chan struct{})
	pool.SubmitWithTimeout(10*time.Millisecond, func(ctx context.Context) {
		<-ctx.Done()
		close(expired)
	})

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("task context did not expire")
	}
}

func TestPool_ShutdownTimeout(t *testing.T) {
	pool := worker.NewPool(newTestLogger())

	blocked := make(chan struct{})
	pool.Submit(func(ctx context.Context) {
		<-blocked
	})

	// A task ignoring cancellation must not wedge the shutdown
	start := time.Now()
	pool.Shutdown(20 * time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)

	close(blocked)
}
