// Package scheduler provides a cooperative, single-goroutine event loop.
//
// Every function handed to a Loop runs on the goroutine that called Run, one at a
// time, so state touched only from loop callbacks needs no locking.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler is the "run later" primitive callers depend on
type Scheduler interface {
	// Post queues fn to run on the loop as soon as possible
	Post(fn func())
	// AfterFunc queues fn to run on the loop once d has elapsed
	AfterFunc(d time.Duration, fn func())
}

// Loop is a Scheduler backed by a single goroutine.
// Post never blocks, including from inside a loop callback; pending work is unbounded.
type Loop struct {
	mu       sync.Mutex
	pending  []func()
	wake     chan struct{}
	quit     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a Loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

// Run executes queued functions until ctx is done or Stop is called
func (l *Loop) Run(ctx context.Context) error {
	zap.S().Debugw("scheduler loop started")

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.quit:
			return nil
		case <-l.wake:
			for _, fn := range l.take() {
				select {
				case <-l.quit:
					return nil
				default:
				}
				fn()
			}
		}
	}
}

// take empties the pending list
func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.pending
	l.pending = nil
	return batch
}

// Post implements Scheduler. Functions posted after Stop are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.quit:
		return
	default:
	}

	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc implements Scheduler
func (l *Loop) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// Stop terminates Run. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
}
