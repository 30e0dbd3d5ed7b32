package eventloop_test

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/transitboard/transitboard/internal/eventloop"
)

func newTestLoop(t *testing.T) (*eventloop.Loop, func()) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	loop := eventloop.New(logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()

	return loop, func() {
		cancel()
		<-done
	}
}

func TestLoopRunsPostedWorkInOrder(t *testing.T) {
	t.Parallel()

	loop, stop := newTestLoop(t)
	defer stop()

	results := make(chan int, 100)
	for i := range 100 {
		require.True(t, loop.Post(func() { results <- i }))
	}

	for i := range 100 {
		select {
		case got := <-results:
			require.Equal(t, i, got)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for posted work")
		}
	}
}

func TestLoopPostFromLoop(t *testing.T) {
	t.Parallel()

	loop, stop := newTestLoop(t)
	defer stop()

	done := make(chan struct{})
	loop.Post(func() {
		// Posting from the loop itself must not deadlock
		loop.Post(func() {
			close(done)
		})
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested post never ran")
	}
}

func TestLoopAfter(t *testing.T) {
	t.Parallel()

	loop, stop := newTestLoop(t)
	defer stop()

	start := time.Now()
	done := make(chan time.Duration, 1)
	loop.After(20*time.Millisecond, func() {
		done <- time.Since(start)
	})

	select {
	case elapsed := <-done:
		require.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("delayed work never ran")
	}
}

func TestLoopRecoversFromPanics(t *testing.T) {
	t.Parallel()

	loop, stop := newTestLoop(t)
	defer stop()

	loop.Post(func() { panic("boom") })

	var ranGoroutine atomic.Bool
	loop.Go("panicking", func() {
		ranGoroutine.Store(true)
		panic("goroutine boom")
	})
	loop.Wait()
	require.True(t, ranGoroutine.Load())

	value, err := eventloop.Await(context.Background(), loop, func(deliver func(string)) {
		deliver("still running")
	})
	require.NoError(t, err)
	require.Equal(t, "still running", value)
}

func TestLoopStop(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	loop := eventloop.New(logger)

	ran := make(chan struct{}, 1)
	require.True(t, loop.Post(func() { ran <- struct{}{} }))

	loop.Stop()
	loop.Stop()
	require.False(t, loop.Post(func() {}))

	// Work queued before Stop still runs, then Run returns
	require.NoError(t, loop.Run(context.Background()))
	require.Len(t, ran, 1)

	_, err := eventloop.Await(context.Background(), loop, func(deliver func(int)) {})
	require.ErrorIs(t, err, eventloop.ErrStopped)
}

func TestAwaitContextDone(t *testing.T) {
	t.Parallel()

	loop, stop := newTestLoop(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := eventloop.Await(ctx, loop, func(deliver func(int)) {
		// Never delivers
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
