// Package eventloop provides the single logical thread of control that owns
// the feed cache and the refresh scheduler.
//
// Work is handed to the loop with Post (run as soon as possible) or After (run
// once a delay has elapsed). Blocking I/O must not run on the loop; start it
// with Go and Post the outcome back.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/smallnest/chanx"
)

var ErrStopped = errors.New("event loop stopped")

type Loop struct {
	logger    *slog.Logger
	queue     *chanx.UnboundedChan[func()]
	afterFunc func(time.Duration, func()) *time.Timer

	mu      sync.RWMutex
	stopped bool

	routines sync.WaitGroup
}

func New(logger *slog.Logger) *Loop {
	return &Loop{
		logger:    logger,
		queue:     chanx.NewUnboundedChan[func()](context.Background(), 64),
		afterFunc: time.AfterFunc,
	}
}

// Post queues fn to run on the loop. It never blocks on the loop being busy.
// Returns false if the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.stopped {
		return false
	}
	l.queue.In <- fn
	return true
}

// After runs fn on the loop once d has elapsed
func (l *Loop) After(d time.Duration, fn func()) {
	if d <= 0 {
		l.Post(fn)
		return
	}
	l.afterFunc(d, func() {
		l.Post(fn)
	})
}

// Go runs fn on a new goroutine, recovering and logging panics.
// Stop waits for these goroutines to finish.
func (l *Loop) Go(name string, fn func()) {
	l.routines.Add(1)
	go func() {
		defer l.routines.Done()
		defer l.recover(name)
		fn()
	}()
}

// Run processes queued work until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Event loop started")
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			l.logger.Info("Event loop stopped", "reason", "context done")
			return ctx.Err()
		case fn, ok := <-l.queue.Out:
			if !ok {
				l.logger.Info("Event loop stopped", "reason", "stopped")
				return nil
			}
			l.execute(fn)
		}
	}
}

// Stop rejects new work and lets Run return once already queued work has run.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	close(l.queue.In)
	l.mu.Unlock()
}

// Wait blocks until every goroutine started with Go has returned
func (l *Loop) Wait() {
	l.routines.Wait()
}

func (l *Loop) Pending() int {
	return l.queue.Len()
}

func (l *Loop) execute(fn func()) {
	defer l.recover("task")
	fn()
}

func (l *Loop) recover(name string) {
	if rec := recover(); rec != nil {
		l.logger.Error(
			"Recovered from panic",
			slog.String("routine", name),
			slog.String("panic", fmt.Sprint(rec)),
			slog.String("stack", string(debug.Stack())),
		)
	}
}

// Poster queues closures onto a loop
type Poster interface {
	Post(fn func()) bool
}

// Await posts issue to the loop and blocks until it delivers a value or ctx is done.
//
// issue runs on the loop. Only the first delivered value is used.
func Await[T any](ctx context.Context, l Poster, issue func(deliver func(T))) (T, error) {
	results := make(chan T, 1)
	deliver := func(value T) {
		select {
		case results <- value:
		default:
		}
	}

	var empty T
	if !l.Post(func() { issue(deliver) }) {
		return empty, ErrStopped
	}

	select {
	case value := <-results:
		return value, nil
	case <-ctx.Done():
		return empty, ctx.Err()
	}
}
