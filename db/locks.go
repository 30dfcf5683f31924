package db

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locks implements the three logical locks of spec §4.1: a
// single-writer/multiple-reader protocol (ReadContext/WriteContext)
// plus an out-of-band priority lane (PriorityContext) that lets a
// foreground caller jump ahead of background workers. The teacher has
// no equivalent (catalog-api serializes through *sql.DB's own pool
// without an app-level lock hierarchy); the priority semaphore is
// grounded on golang.org/x/sync, the coordination primitive
// tomtom215-cartographus uses for its worker goroutines.
type Locks struct {
	rw       sync.RWMutex
	priority *semaphore.Weighted
}

func newLocks() *Locks {
	return &Locks{priority: semaphore.NewWeighted(1)}
}

// ReadContext is released by calling the returned function. Any number
// of readers may hold it concurrently; no writer may run while one is
// held. Honors ctx cancellation only before acquiring, not mid-wait:
// the underlying sync.RWMutex has no cancellable Lock, and SQL-level
// waits are already bounded by the busy timeout.
func (l *Locks) ReadContext(ctx context.Context) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.rw.RLock()
	return l.rw.RUnlock, nil
}

// WriteContext is exclusive over both readers and other writers.
func (l *Locks) WriteContext(ctx context.Context) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.rw.Lock()
	return l.rw.Unlock, nil
}

// PriorityContext acquires a scheduling-priority token. Holding it does
// not itself exclude readers or writers; callers combine it with
// WriteContext/ReadContext to let a user-facing query or a pause
// request skip ahead of queued background work, since background
// workers are expected to check PriorityHeld before starting a new
// unit of work and yield if priority is held.
func (l *Locks) PriorityContext(ctx context.Context) (release func(), err error) {
	if err := l.priority.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { l.priority.Release(1) }, nil
}

// PriorityHeld reports whether a caller currently holds the priority
// lane, without blocking. Background workers poll this between items.
func (l *Locks) PriorityHeld() bool {
	if l.priority.TryAcquire(1) {
		l.priority.Release(1)
		return false
	}
	return true
}
