// Package search runs the debounced suggestion channel: each keystroke
// restarts the debounce timer and supersedes any request in flight.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mohammed-shakir/ecomap/internal/backend"
	"github.com/mohammed-shakir/ecomap/internal/inflight"
	"github.com/mohammed-shakir/ecomap/internal/logger"
)

type Backend interface {
	Search(ctx context.Context, query string) ([]backend.SearchResult, error)
}

// Suggestions is the state of the suggestion list.
type Suggestions struct {
	Query   string                 `json:"query"`
	Pending bool                   `json:"pending"`
	Results []backend.SearchResult `json:"results"`
	Error   string                 `json:"error,omitempty"`
}

type Config struct {
	Debounce time.Duration
	MinChars int
}

type Channel struct {
	logger *slog.Logger
	api    Backend
	cfg    Config
	ch     *inflight.Channel
	base   context.Context

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	state   Suggestions
	changed chan struct{}
}

func New(base context.Context, log *slog.Logger, api Backend, cfg Config) *Channel {
	if base == nil {
		base = context.Background()
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = 1
	}
	return &Channel{
		logger:  log,
		api:     api,
		cfg:     cfg,
		ch:      inflight.New("search"),
		base:    logger.WithChannel(base, "search"),
		state:   Suggestions{Results: []backend.SearchResult{}},
		changed: make(chan struct{}),
	}
}

// Update sets the query text. Queries shorter than MinChars clear the list
// without touching the backend.
func (c *Channel) Update(query string) {
	q := strings.TrimSpace(query)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.ch.Cancel()

	if utf8.RuneCountInString(q) < c.cfg.MinChars {
		c.setLocked(Suggestions{Query: q, Results: []backend.SearchResult{}})
		return
	}
	c.setLocked(Suggestions{Query: q, Pending: true, Results: []backend.SearchResult{}})
	seq := c.seq
	c.timer = time.AfterFunc(c.cfg.Debounce, func() { c.fire(seq, q) })
}

// Reset clears the query and drops pending work.
func (c *Channel) Reset() { c.Update("") }

func (c *Channel) Current() Suggestions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Settle waits until the suggestions for query are no longer pending. Once a
// newer query has replaced it, Settle returns the current state at once.
func (c *Channel) Settle(ctx context.Context, query string) (Suggestions, error) {
	q := strings.TrimSpace(query)
	for {
		c.mu.Lock()
		st, changed := c.state, c.changed
		c.mu.Unlock()
		if st.Query != q || !st.Pending {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}

func (c *Channel) setLocked(s Suggestions) {
	c.state = s
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Channel) fire(seq uint64, q string) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	t := c.ch.Start(c.base)
	c.mu.Unlock()

	defer t.Done()
	res, err := c.api.Search(t.Context(), q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.Current() || inflight.IsCancelled(err) {
		return
	}
	if err != nil {
		c.logger.WarnContext(t.Context(), "search failed", "query", q, "err", err)
		c.setLocked(Suggestions{Query: q, Results: []backend.SearchResult{}, Error: "Поиск недоступен"})
		return
	}
	if res == nil {
		res = []backend.SearchResult{}
	}
	c.setLocked(Suggestions{Query: q, Results: res})
}
