// Package cache holds the most recent value of each remote feed and makes sure
// at most one fetch per feed is in flight at any time.
//
// A Cache is owned by the event loop: Lookup, State and Len must only be
// called from the loop, and the Deferred returned by a FetchFunc must resolve
// on the loop.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/transitboard/transitboard/internal/deferred"
)

var ErrUnexpectedType = errors.New("cached value has unexpected type")

// FetchFunc starts one remote fetch
type FetchFunc func() *deferred.Deferred[any]

// ErrorSink receives every failed fetch
type ErrorSink func(error)

type FetchError struct {
	Key FeedKey
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %s", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type slot struct {
	state     SlotState
	waiters   []func(any)
	value     any
	fetchedAt time.Time
}

type Cache struct {
	logger  *slog.Logger
	sink    ErrorSink
	nowFunc func() time.Time

	slots map[FeedKey]*slot
}

func New(logger *slog.Logger, sink ErrorSink, nowFunc func() time.Time) *Cache {
	return &Cache{
		logger:  logger.With("component", "cache"),
		sink:    sink,
		nowFunc: nowFunc,
		slots:   make(map[FeedKey]*slot),
	}
}

// Lookup delivers the value for key to onResult.
//
// A value fetched less than validity ago is delivered immediately. If a fetch
// for key is already in flight, onResult is queued behind it. Otherwise fetch
// is called and its value is stored and delivered to onResult, then to every
// queued callback in the order they were queued.
//
// When the fetch fails the entry is cleared and the error is passed to the
// error sink. Neither onResult nor the queued callbacks are called.
func (c *Cache) Lookup(key FeedKey, validity time.Duration, fetch FetchFunc, onResult func(any)) {
	entry, ok := c.slots[key]
	if ok {
		switch entry.state {
		case SlotPending:
			c.logger.Debug("Waiting for in-flight fetch", "key", key.String(), "waiters", len(entry.waiters)+1)
			recordCount(metrics.coalesced, key)
			entry.waiters = append(entry.waiters, onResult)
			return
		case SlotFresh:
			if c.nowFunc().Sub(entry.fetchedAt) < validity {
				recordCount(metrics.hits, key)
				onResult(entry.value)
				return
			}
		}
	}

	c.logger.Debug("Fetching feed", "key", key.String(), "cache", "miss")
	recordCount(metrics.misses, key)

	pending := &slot{state: SlotPending}
	c.slots[key] = pending

	fetch().Then(
		func(value any) {
			waiters := pending.waiters
			c.slots[key] = &slot{
				state:     SlotFresh,
				value:     value,
				fetchedAt: c.nowFunc(),
			}

			onResult(value)
			for _, waiter := range waiters {
				waiter(value)
			}
		},
		func(err error) {
			// Queued callbacks are dropped; the next lookup starts over
			delete(c.slots, key)
			recordCount(metrics.failures, key)
			c.logger.Warn("Fetch failed", "key", key.String(), "error", err.Error(), "droppedWaiters", len(pending.waiters))
			c.report(key, err)
		},
	)
}

func (c *Cache) State(key FeedKey) SlotState {
	entry, ok := c.slots[key]
	if !ok {
		return SlotEmpty
	}
	return entry.state
}

// Len returns the number of pending or fresh entries
func (c *Cache) Len() int {
	return len(c.slots)
}

func (c *Cache) report(key FeedKey, err error) {
	if c.sink == nil {
		return
	}
	c.sink(&FetchError{Key: key, Err: err})
}

// Lookup is the typed form of (*Cache).Lookup.
//
// All lookups for a key must agree on T. A cached value of another type is
// reported to the error sink and not delivered.
func Lookup[T any](c *Cache, key FeedKey, validity time.Duration, fetch func() *deferred.Deferred[T], onResult func(T)) {
	c.Lookup(
		key,
		validity,
		func() *deferred.Deferred[any] {
			return deferred.Map(fetch(), func(value T) (any, error) {
				return value, nil
			})
		},
		func(value any) {
			typed, ok := value.(T)
			if !ok {
				c.report(key, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedType, value, typed))
				return
			}
			onResult(typed)
		},
	)
}
