// Package userlock serializes role mutations per user.
//
// The platform acknowledges a role-mutation request before the change is
// visible in any locally observable membership state; the real signal is a
// later member-update event. Holding a per-user lock from mutation until that
// event keeps two quick reactions from the same user from both acting on the
// pre-mutation role set.
package userlock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/reactrole/internal/platform/timeouts"
)

// Registry maps user ids to reference-counted locks. Entries are created on
// first Lock and removed once nothing holds or waits on them, so the map
// shrinks back under user churn instead of growing without bound.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration

	// logf defaults to log.Printf; replaced in tests.
	logf func(format string, args ...any)
}

type entry struct {
	refs    int
	held    bool
	waiters []chan struct{}
	timer   *time.Timer
	// gen invalidates fallback timers from earlier acquisitions.
	gen uint64
}

// NewRegistry creates a lock registry. A non-positive timeout falls back to
// timeouts.LockRelease.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = timeouts.LockRelease
	}
	return &Registry{
		entries: make(map[string]*entry),
		timeout: timeout,
		logf:    log.Printf,
	}
}

// Lock acquires the lock for the user, blocking until any current holder
// releases it. Acquisition is FIFO per user; locks for distinct users never
// contend. Each acquisition arms a fallback timer that force-releases the
// lock if no confirmation arrives.
func (r *Registry) Lock(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	e, ok := r.entries[userID]
	if !ok {
		e = &entry{}
		r.entries[userID] = e
	}
	e.refs++

	if !e.held {
		e.held = true
		r.armTimerLocked(userID, e)
		r.mu.Unlock()
		return nil
	}

	ch := make(chan struct{})
	e.waiters = append(e.waiters, ch)
	r.mu.Unlock()

	select {
	case <-ch:
		// The releaser handed the lock off and re-armed the timer.
		return nil
	case <-ctx.Done():
		r.mu.Lock()
		select {
		case <-ch:
			// Handoff raced the cancellation; we own the lock and must
			// give it back.
			r.mu.Unlock()
			r.unlock(userID, false)
			return ctx.Err()
		default:
		}
		for i, w := range e.waiters {
			if w == ch {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				break
			}
		}
		e.refs--
		if e.refs == 0 {
			delete(r.entries, userID)
		}
		r.mu.Unlock()
		return ctx.Err()
	}
}

// Unlock releases the user's lock. Unlocking a user with nothing locked logs
// and returns, so the confirmation handler can call it unconditionally.
func (r *Registry) Unlock(userID string) {
	r.unlock(userID, false)
}

func (r *Registry) unlock(userID string, timedOut bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok || !e.held {
		r.logf("userlock: extraneous unlock for user %s", userID)
		return
	}
	r.releaseLocked(userID, e, timedOut)
}

// releaseLocked releases a held entry. Callers must hold r.mu.
func (r *Registry) releaseLocked(userID string, e *entry, timedOut bool) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	// Invalidate any fallback timer still in flight.
	e.gen++

	if timedOut {
		r.logf("WARN: userlock: released user %s after %s timeout without confirmation", userID, r.timeout)
	}

	e.refs--
	if len(e.waiters) > 0 {
		ch := e.waiters[0]
		e.waiters = e.waiters[1:]
		r.armTimerLocked(userID, e)
		close(ch)
		return
	}

	e.held = false
	if e.refs == 0 {
		delete(r.entries, userID)
	}
}

// armTimerLocked starts the fallback release timer for the current holder.
// Callers must hold r.mu.
func (r *Registry) armTimerLocked(userID string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(r.timeout, func() {
		r.timerExpired(userID, gen)
	})
}

func (r *Registry) timerExpired(userID string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok || !e.held || e.gen != gen {
		// The lock was already released (or re-acquired) normally.
		return
	}
	r.releaseLocked(userID, e, true)
}

// Locked reports whether the user currently holds the lock.
func (r *Registry) Locked(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	return ok && e.held
}
