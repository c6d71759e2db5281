// Package statecell holds the single shared authentication state cell.
//
// The cell is the one synchronization point of the session lifecycle: the
// resolver and the session-change listener write it, every gate and page
// reads it. Writes are full replaces guarded by a sequence stamp taken at
// dispatch time, so a slow early profile fetch can never overwrite the
// result of a later notification.
package statecell

import (
	"log/slog"
	"sync"

	"github.com/tagryu/GlobalCampus/pkg/models"
)

// Cell is a single mutable AuthState slot with subscription support.
// There is exactly one Cell per process, owned for the process lifetime.
type Cell struct {
	log *slog.Logger

	mu       sync.Mutex
	state    models.AuthState
	stamp    uint64 // stamp of the last accepted publish
	dispatch uint64 // monotonically increasing stamp source
	subs     map[int]*subscriber
	nextSub  int
	closed   bool
}

// New returns a Cell in the initial loading state.
func New(logger *slog.Logger) *Cell {
	return &Cell{
		log:   logger,
		state: models.AuthState{Loading: true},
		subs:  make(map[int]*subscriber),
	}
}

// Stamp allocates the next dispatch stamp. Writers must take their stamp at
// the moment the work is dispatched (notification receipt, resolve start),
// not when the follow-up fetch completes.
func (c *Cell) Stamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatch++
	return c.dispatch
}

// Publish replaces the current state if stamp is newer than the stamp of the
// last accepted publish. It reports whether the write was accepted. Stale
// writes are dropped whole; there is no partial merging.
func (c *Cell) Publish(stamp uint64, state models.AuthState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if stamp <= c.stamp {
		c.log.Debug("dropping stale auth state publish", "stamp", stamp, "current", c.stamp)
		return false
	}

	c.stamp = stamp
	c.state = state
	for _, s := range c.subs {
		s.push(state)
	}
	return true
}

// ForceLoaded clears the loading flag on the current state without consuming
// a stamp. The resolver's deadline timer uses it to unblock gates when the
// provider call has not returned; because the stamp does not advance, the
// late result of that call still supersedes the forced state.
func (c *Cell) ForceLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.state.Loading {
		return
	}
	c.state.Loading = false
	for _, s := range c.subs {
		s.push(c.state)
	}
}

// Load returns the current state.
func (c *Cell) Load() models.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a reader. The returned channel receives every accepted
// publish after the call, in order, with no coalescing; a slow reader queues
// rather than blocking the writer. The cancel function must be called when
// the reader is done, after which the channel is closed.
func (c *Cell) Subscribe() (<-chan models.AuthState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := newSubscriber()
	if c.closed {
		close(s.ch)
		return s.ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = s
	go s.pump()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		s.stop()
	}
	return s.ch, cancel
}

// Close tears down all subscriptions. Used at process teardown only.
func (c *Cell) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, s := range c.subs {
		delete(c.subs, id)
		s.stop()
	}
}

// subscriber is an unbounded queue feeding one reader channel.
type subscriber struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []models.AuthState
	stopped bool
	ch      chan models.AuthState
	done    chan struct{}
}

func newSubscriber() *subscriber {
	s := &subscriber{
		ch:   make(chan models.AuthState),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscriber) push(state models.AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.queue = append(s.queue, state)
	s.cond.Signal()
}

func (s *subscriber) stop() {
	s.mu.Lock()
	alreadyStopped := s.stopped
	s.stopped = true
	s.mu.Unlock()
	if !alreadyStopped {
		close(s.done)
		s.cond.Signal()
	}
}

// pump drains the queue into the reader channel until stopped.
func (s *subscriber) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.stopped {
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- next:
		case <-s.done:
			return
		}
	}
}
