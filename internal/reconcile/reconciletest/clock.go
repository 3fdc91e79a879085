// Package reconciletest provides a manually advanced clock for reconciler tests.
package reconciletest

import (
	"sort"
	"sync"
	"time"

	"github.com/user/blocklist-service/internal/reconcile"
)

// ManualClock fires timers only when Advance moves time past their deadline.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	clock    *ManualClock
	id       int
	deadline time.Duration
	f        func()
}

// NewManualClock returns a clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{timers: make(map[int]*manualTimer)}
}

var _ reconcile.Clock = (*ManualClock)(nil)

func (c *ManualClock) AfterFunc(d time.Duration, f func()) reconcile.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := &manualTimer{clock: c, id: c.nextID, deadline: c.now + d, f: f}
	c.timers[t.id] = t
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.timers[t.id]; !ok {
		return false
	}
	delete(t.clock.timers, t.id)
	return true
}

// Advance moves time forward by d and runs due callbacks in deadline order,
// on the calling goroutine.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for id, t := range c.timers {
		if t.deadline <= c.now {
			due = append(due, t)
			delete(c.timers, id)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of scheduled timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
