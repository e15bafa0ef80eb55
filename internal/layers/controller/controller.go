// Package controller drives the map overlay from the active filter and the
// login state. It is the single entry point the rest of the application uses
// to change what layer is shown.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/mohammed-shakir/ecomap/internal/core/observability"
	"github.com/mohammed-shakir/ecomap/internal/inflight"
	"github.com/mohammed-shakir/ecomap/internal/layers"
	"github.com/mohammed-shakir/ecomap/internal/layers/adapt"
	"github.com/mohammed-shakir/ecomap/internal/layers/color"
	"github.com/mohammed-shakir/ecomap/internal/layers/registry"
	"github.com/mohammed-shakir/ecomap/internal/logger"
)

type State string

const (
	Idle       State = "idle"
	Fetching   State = "fetching"
	Displaying State = "displaying"
)

// LayerSource fetches raw layer payloads (the backend client or its cache).
type LayerSource interface {
	FetchLayer(ctx context.Context, lt layers.LayerType) (json.RawMessage, error)
}

// Overlay is the subset of overlay.Manager the controller drives.
type Overlay interface {
	ShowPoints(features []layers.Feature)
	ShowChoropleth(features []layers.Feature, colorFor color.Func)
	Clear()
}

// Status is a copy of the controller state.
type Status struct {
	Filter   *layers.Filter   `json:"filter"`
	Layer    layers.LayerType `json:"layer,omitempty"`
	State    State            `json:"state"`
	LoggedIn bool             `json:"loggedIn"`
}

type Controller struct {
	logger *slog.Logger
	reg    *registry.Registry
	src    LayerSource
	ov     Overlay
	ch     *inflight.Channel
	base   context.Context

	mu       sync.Mutex
	filter   *layers.Filter
	loggedIn bool
	state    State
	layer    layers.LayerType

	wg sync.WaitGroup
}

// New builds an idle, logged-out controller. Fetches derive their context
// from base, so cancelling base aborts them.
func New(base context.Context, log *slog.Logger, reg *registry.Registry, src LayerSource, ov Overlay) *Controller {
	if base == nil {
		base = context.Background()
	}
	base = logger.WithChannel(base, "layer")
	return &Controller{
		logger: log,
		reg:    reg,
		src:    src,
		ov:     ov,
		ch:     inflight.New("layer"),
		base:   base,
		state:  Idle,
	}
}

// SetFilter makes f the active filter; nil clears it.
func (c *Controller) SetFilter(f *layers.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f != nil {
		cp := *f
		f = &cp
	}
	c.filter = f
	c.applyLocked()
}

// Toggle selects id, or clears the filter when id is already active.
func (c *Controller) Toggle(id layers.FilterID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filter != nil && c.filter.ID == id {
		c.filter = nil
	} else {
		f := layers.Filter{ID: id}
		if e, ok := c.reg.Resolve(id); ok {
			f = e.Filter
		}
		c.filter = &f
	}
	c.applyLocked()
}

func (c *Controller) SetLoggedIn(loggedIn bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn == loggedIn {
		return
	}
	c.loggedIn = loggedIn
	c.applyLocked()
}

// Refresh refetches lt when it is the layer currently selected. It reports
// whether a fetch was started.
func (c *Controller) Refresh(lt layers.LayerType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn || c.filter == nil || c.layer != lt {
		return false
	}
	c.applyLocked()
	return c.state == Fetching
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{State: c.state, LoggedIn: c.loggedIn}
	if c.filter != nil {
		f := *c.filter
		st.Filter = &f
		st.Layer = c.layer
	}
	return st
}

// Wait blocks until every fetch started so far has finished.
func (c *Controller) Wait() { c.wg.Wait() }

func (c *Controller) applyLocked() {
	if c.filter == nil || !c.loggedIn {
		c.resetLocked()
		return
	}
	e, ok := c.reg.Resolve(c.filter.ID)
	if !ok || e.Adapt == nil {
		c.logger.Debug("no layer for filter", "filter", int(c.filter.ID))
		c.resetLocked()
		return
	}

	t := c.ch.Start(c.base)
	c.state = Fetching
	c.layer = e.Layer
	c.wg.Add(1)
	go c.fetch(t, e)
}

func (c *Controller) resetLocked() {
	c.ch.Cancel()
	c.ov.Clear()
	c.state = Idle
	c.layer = ""
}

func (c *Controller) fetch(t inflight.Ticket, e registry.Entry) {
	defer c.wg.Done()
	defer t.Done()

	lt := string(e.Layer)
	ctx := logger.WithLayer(t.Context(), lt)

	raw, err := c.src.FetchLayer(ctx, e.Layer)
	var out layers.Adapted
	if err == nil {
		out, err = e.Adapt(raw)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !t.Current() || inflight.IsCancelled(err) {
		observability.IncLayerFetch(lt, "cancelled")
		c.logger.DebugContext(ctx, "layer fetch superseded", "generation", t.Generation())
		return
	}
	if err != nil {
		observability.IncLayerFetch(lt, "failed")
		if errors.Is(err, adapt.ErrNotArray) {
			c.logger.ErrorContext(ctx, "layer payload has wrong shape", "err", err)
		} else {
			c.logger.WarnContext(ctx, "layer fetch failed", "err", err)
		}
		c.ov.Clear()
		c.state = Idle
		return
	}

	for reason, n := range out.SkipCounts() {
		observability.AddSkippedRecords(lt, string(reason), n)
	}
	for _, s := range out.Skipped {
		c.logger.DebugContext(ctx, "record skipped", "index", s.Index, "id", s.ID, "reason", string(s.Reason), "err", s.Err)
	}

	switch e.Mode {
	case layers.Choropleth:
		if len(out.Features) == 0 {
			observability.IncLayerFetch(lt, "empty")
			c.ov.Clear()
			c.state = Idle
			return
		}
		c.ov.ShowChoropleth(out.Features, e.Color)
	default:
		c.ov.ShowPoints(out.Features)
	}
	observability.IncLayerFetch(lt, "ok")
	c.state = Displaying
	c.logger.InfoContext(ctx, "layer displayed", "features", len(out.Features), "skipped", len(out.Skipped))
}
