// Package countdown drives the per-module clock. A clock only runs while
// at least one view observes it: attaching is the view mounting, detaching
// is its teardown. Time spent away from any exam view is deliberately not
// charged; the countdown approximates engaged time, not wall-clock time.
package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/session"
)

// TickPeriod is the wall-clock interval between countdown decrements.
const TickPeriod = time.Second

// Clock decrements one session store's TimeLeft once per second while any
// view is attached. A single ticker serves all attached views, so showing
// the question view and the review view together never double-ticks.
type Clock struct {
	store *session.Store
	log   zerolog.Logger

	mu          sync.Mutex
	attached    int
	subscribers map[chan int]struct{}
	stop        context.CancelFunc
}

// NewClock creates a stopped clock for a session store.
func NewClock(store *session.Store, log zerolog.Logger) *Clock {
	return &Clock{
		store:       store,
		log:         log.With().Str("component", "countdown").Logger(),
		subscribers: make(map[chan int]struct{}),
	}
}

// Attach registers a view. The returned channel receives the remaining
// seconds after every tick (lossy for slow consumers); the returned func
// detaches the view and must be called on teardown. The first attachment
// starts the ticker.
func (c *Clock) Attach() (<-chan int, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan int, 4)
	c.subscribers[ch] = struct{}{}
	c.attached++

	if c.attached == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		c.stop = cancel
		go c.run(ctx)
	}

	var once sync.Once
	detach := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, ch)
			c.attached--
			if c.attached == 0 && c.stop != nil {
				c.stop()
				c.stop = nil
			}
		})
	}
	return ch, detach
}

// Stop force-detaches everything. Used on server shutdown.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.attached = 0
	c.subscribers = make(map[chan int]struct{})
}

func (c *Clock) run(ctx context.Context) {
	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := c.store.Tick(ctx)
			c.broadcast(remaining)
		}
	}
}

func (c *Clock) broadcast(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- remaining:
		default:
			// Drop the tick for a stalled subscriber; the next one carries
			// the fresher value anyway.
		}
	}
}

// Manager owns one clock per student.
type Manager struct {
	mu     sync.Mutex
	clocks map[int]*Clock
	log    zerolog.Logger
}

// NewManager creates an empty clock manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		clocks: make(map[int]*Clock),
		log:    log,
	}
}

// ForStudent returns the student's clock, creating it if needed. The same
// store must always be passed for a given student.
func (m *Manager) ForStudent(userID int, store *session.Store) *Clock {
	m.mu.Lock()
	defer m.mu.Unlock()

	if clock, ok := m.clocks[userID]; ok {
		return clock
	}
	clock := NewClock(store, m.log)
	m.clocks[userID] = clock
	return clock
}

// StopAll stops every clock. Used on server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, clock := range m.clocks {
		clock.Stop()
	}
}
