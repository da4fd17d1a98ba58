package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend/internal/logging"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	pool := NewPool(3, logging.NewDefault())
	defer pool.Shutdown()

	var ran atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		ok := pool.Submit(func(ctx context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		})
		require.True(t, ok)
	}
	wg.Wait()

	assert.Equal(t, int32(20), ran.Load())
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	pool := NewPool(1, logging.NewDefault())

	var ran atomic.Int32
	for range 5 {
		require.True(t, pool.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	pool.Shutdown()

	assert.Equal(t, int32(5), ran.Load())
}

func TestPool_SubmitAfterShutdownReportsFalse(t *testing.T) {
	pool := NewPool(1, logging.NewDefault())
	pool.Shutdown()

	ok := pool.Submit(func(ctx context.Context) error { return nil })
	assert.False(t, ok)

	// A second shutdown is a no-op.
	pool.Shutdown()
}
