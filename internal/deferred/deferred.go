package deferred

import (
	"errors"
	"sync"
)

type State int

const (
	Unresolved State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var ErrNoError = errors.New("deferred failed without an error")

// Deferred is the eventual outcome of an asynchronous operation.
//
// It is resolved at most once, either with a value or with an error.
// Callbacks registered before resolution are invoked in registration order when
// it resolves; callbacks registered afterwards are invoked immediately.
// Callbacks run on the goroutine that resolves the Deferred (or registers the
// callback, if already resolved).
type Deferred[T any] struct {
	mu        sync.Mutex
	state     State
	value     T
	err       error
	onSuccess []func(T)
	onFailure []func(error)
}

func New[T any]() *Deferred[T] {
	return &Deferred[T]{}
}

func Resolved[T any](value T) *Deferred[T] {
	d := New[T]()
	d.Succeed(value)
	return d
}

func Rejected[T any](err error) *Deferred[T] {
	d := New[T]()
	d.Fail(err)
	return d
}

// Succeed resolves the Deferred with value.
// Returns false if it was already resolved, in which case nothing happens.
func (d *Deferred[T]) Succeed(value T) bool {
	d.mu.Lock()
	if d.state != Unresolved {
		d.mu.Unlock()
		return false
	}
	d.state = Succeeded
	d.value = value
	callbacks := d.onSuccess
	d.onSuccess = nil
	d.onFailure = nil
	d.mu.Unlock()

	for _, callback := range callbacks {
		callback(value)
	}
	return true
}

// Fail resolves the Deferred with err.
// Returns false if it was already resolved, in which case nothing happens.
func (d *Deferred[T]) Fail(err error) bool {
	if err == nil {
		err = ErrNoError
	}

	d.mu.Lock()
	if d.state != Unresolved {
		d.mu.Unlock()
		return false
	}
	d.state = Failed
	d.err = err
	callbacks := d.onFailure
	d.onSuccess = nil
	d.onFailure = nil
	d.mu.Unlock()

	for _, callback := range callbacks {
		callback(err)
	}
	return true
}

func (d *Deferred[T]) OnSuccess(callback func(T)) *Deferred[T] {
	d.mu.Lock()
	switch d.state {
	case Unresolved:
		d.onSuccess = append(d.onSuccess, callback)
		d.mu.Unlock()
	case Succeeded:
		value := d.value
		d.mu.Unlock()
		callback(value)
	default:
		d.mu.Unlock()
	}
	return d
}

func (d *Deferred[T]) OnFailure(callback func(error)) *Deferred[T] {
	d.mu.Lock()
	switch d.state {
	case Unresolved:
		d.onFailure = append(d.onFailure, callback)
		d.mu.Unlock()
	case Failed:
		err := d.err
		d.mu.Unlock()
		callback(err)
	default:
		d.mu.Unlock()
	}
	return d
}

// Then registers both continuations at once
func (d *Deferred[T]) Then(onSuccess func(T), onFailure func(error)) *Deferred[T] {
	return d.OnSuccess(onSuccess).OnFailure(onFailure)
}

func (d *Deferred[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Result returns the outcome if resolved. ok is false while unresolved.
func (d *Deferred[T]) Result() (T, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Unresolved {
		var empty T
		return empty, false, nil
	}
	return d.value, true, d.err
}

// Map returns a Deferred resolving to transform(value) when d succeeds, and
// failing with the same error when d fails.
// A non-nil error from transform fails the returned Deferred.
func Map[T, U any](d *Deferred[T], transform func(T) (U, error)) *Deferred[U] {
	out := New[U]()
	d.Then(
		func(value T) {
			mapped, err := transform(value)
			if err != nil {
				out.Fail(err)
				return
			}
			out.Succeed(mapped)
		},
		func(err error) {
			out.Fail(err)
		},
	)
	return out
}

// Chain passes a successful value to next and follows the Deferred it returns.
func Chain[T, U any](d *Deferred[T], next func(T) *Deferred[U]) *Deferred[U] {
	out := New[U]()
	d.Then(
		func(value T) {
			next(value).Then(
				func(u U) { out.Succeed(u) },
				func(err error) { out.Fail(err) },
			)
		},
		func(err error) {
			out.Fail(err)
		},
	)
	return out
}
