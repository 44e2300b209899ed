// Package deferred provides a cancelable single-shot delayed callback that
// coalesces repeated starts.
//
// Повторный Start, пока таймер взведён, всегда подменяет параметр, но
// переносит дедлайн только при resetDeadline=true.
package deferred

import (
	"sync"
	"time"
)

// Dispatcher runs fn on the goroutine that owns the action's state.
type Dispatcher func(fn func())

type Option[T any] func(*Action[T])

// WithDispatcher routes the callback through d instead of the timer goroutine.
func WithDispatcher[T any](d Dispatcher) Option[T] {
	return func(a *Action[T]) { a.dispatch = d }
}

type Action[T any] struct {
	mu       sync.Mutex
	fn       func(T)
	dispatch Dispatcher

	timer    *time.Timer
	deadline time.Time
	param    T
	gen      uint64
}

func New[T any](fn func(T), opts ...Option[T]) *Action[T] {
	a := &Action[T]{fn: fn}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Start arms the action. While a timer is pending the payload is always
// replaced; the deadline only moves when resetDeadline is true.
func (a *Action[T]) Start(delay time.Duration, param T, resetDeadline bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.param = param
	if a.timer != nil && !resetDeadline {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	if delay < 0 {
		delay = 0
	}
	a.gen++
	gen := a.gen
	a.deadline = time.Now().Add(delay)
	a.timer = time.AfterFunc(delay, func() { a.expire(gen) })
}

// Cancel disarms the pending timer. Safe to call any number of times.
func (a *Action[T]) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer == nil {
		return
	}
	a.timer.Stop()
	a.timer = nil
	a.gen++
	var zero T
	a.param = zero
}

// Done reports whether no timer is armed.
func (a *Action[T]) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer == nil
}

// Deadline returns the moment the pending timer fires, zero when Done.
func (a *Action[T]) Deadline() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer == nil {
		return time.Time{}
	}
	return a.deadline
}

func (a *Action[T]) expire(gen uint64) {
	if a.dispatch == nil {
		a.fire(gen)
		return
	}
	a.dispatch(func() { a.fire(gen) })
}

// fire re-checks the generation: a Cancel or a resetting Start may have
// happened while the callback was queued on the dispatcher.
func (a *Action[T]) fire(gen uint64) {
	a.mu.Lock()
	if a.timer == nil || a.gen != gen {
		a.mu.Unlock()
		return
	}
	param := a.param
	var zero T
	a.param = zero
	a.timer = nil
	a.mu.Unlock()

	if a.fn != nil {
		a.fn(param)
	}
}
