package service

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "smsgate/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDispatcher(t *testing.T, d *Dispatcher) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func TestDispatcher_RunsTasksInOrder(t *testing.T) {
	d := NewDispatcher(16, quietLogger())

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		require.NoError(t, d.Submit(func(ctx context.Context) {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	startDispatcher(t, d)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDispatcher_SubmitDoesNotBlockWhenFull(t *testing.T) {
	d := NewDispatcher(1, quietLogger())
	require.NoError(t, d.Submit(func(ctx context.Context) {}))

	done := make(chan error, 1)
	go func() { done <- d.Submit(func(ctx context.Context) {}) }()

	select {
	case err := <-done:
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueueFull))
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full backlog")
	}
	assert.Equal(t, 1, d.Pending())
}

func TestDispatcher_SubmitAfterStop(t *testing.T) {
	d := NewDispatcher(4, quietLogger())
	cancel, done := startDispatcher(t, d)
	cancel()
	<-done

	err := d.Submit(func(ctx context.Context) {})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInternalError))
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	logger, buf := bufferedLogger()
	d := NewDispatcher(4, logger)

	ran := make(chan struct{})
	require.NoError(t, d.Submit(func(ctx context.Context) { panic("boom") }))
	require.NoError(t, d.Submit(func(ctx context.Context) { close(ran) }))

	startDispatcher(t, d)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task after panic did not run")
	}
	assert.Contains(t, buf.String(), "Recovered from panic")
}

func TestDispatcher_TaskReceivesRunContext(t *testing.T) {
	d := NewDispatcher(4, quietLogger())
	cancel, _ := startDispatcher(t, d)

	got := make(chan error, 1)
	require.NoError(t, d.Submit(func(ctx context.Context) {
		<-ctx.Done()
		got <- ctx.Err()
	}))

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task did not observe cancellation")
	}
}
