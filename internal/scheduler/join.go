package scheduler

// Join collects the results of N independent sub-fetches and calls done once
// all N have been delivered.
//
// A sub-fetch that never delivers keeps done from ever being called. Not safe
// for concurrent use; deliver from the event loop.
type Join[T any] struct {
	remaining int
	delivered []bool
	results   []T
	done      func([]T)
}

// NewJoin returns a Join over n results. With n == 0 done is called immediately.
func NewJoin[T any](n int, done func([]T)) *Join[T] {
	j := &Join[T]{
		remaining: n,
		delivered: make([]bool, n),
		results:   make([]T, n),
		done:      done,
	}
	if n == 0 {
		done(j.results)
	}
	return j
}

// Deliver stores the result of sub-fetch i.
// Repeated deliveries for the same index are ignored.
func (j *Join[T]) Deliver(i int, value T) {
	if i < 0 || i >= len(j.results) || j.delivered[i] {
		return
	}
	j.delivered[i] = true
	j.results[i] = value
	j.remaining--

	if j.remaining == 0 {
		j.done(j.results)
	}
}

func (j *Join[T]) Remaining() int {
	return j.remaining
}
