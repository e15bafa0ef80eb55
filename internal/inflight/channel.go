// Package inflight implements per-channel request supersession: starting a new
// request on a channel cancels the previous one, and completion handlers check
// their ticket before touching shared state.
package inflight

import (
	"context"
	"errors"
	"sync"
)

type Channel struct {
	name   string
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Ticket identifies one request on a channel.
type Ticket struct {
	ch  *Channel
	gen uint64
	ctx context.Context
}

func New(name string) *Channel {
	return &Channel{name: name}
}

func (c *Channel) Name() string { return c.name }

// Start cancels the outstanding request, if any, and returns a ticket whose
// context is derived from parent.
func (c *Channel) Start(parent context.Context) Ticket {
	ctx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.cancel = cancel
	gen := c.gen
	c.mu.Unlock()
	return Ticket{ch: c, gen: gen, ctx: ctx}
}

// Cancel supersedes the outstanding request without starting a new one.
func (c *Channel) Cancel() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.mu.Unlock()
}

// Generation returns the current generation; 0 means nothing was ever started.
func (c *Channel) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (t Ticket) Context() context.Context { return t.ctx }

func (t Ticket) Generation() uint64 { return t.gen }

// Current reports whether t is still the newest request on its channel.
func (t Ticket) Current() bool {
	if t.ch == nil {
		return false
	}
	t.ch.mu.Lock()
	defer t.ch.mu.Unlock()
	return t.ch.gen == t.gen
}

// Done releases the ticket's context once its handler has finished.
func (t Ticket) Done() {
	if t.ch == nil {
		return
	}
	t.ch.mu.Lock()
	defer t.ch.mu.Unlock()
	if t.ch.gen == t.gen && t.ch.cancel != nil {
		t.ch.cancel()
		t.ch.cancel = nil
	}
}

// IsCancelled separates supersession from real failures.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
