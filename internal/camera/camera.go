// Package camera holds the map viewport and the "zoom to me" geolocation
// bridge.
package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
)

// ErrNoLocation is returned by locators that cannot produce a position.
var ErrNoLocation = errors.New("location unavailable")

const (
	MinZoom = 0
	MaxZoom = 19

	// zoom levels used when flying to a result
	CityZoom   = 10
	RegionZoom = 6
	LocateZoom = 12
)

type Position struct {
	Center orb.Point `json:"center"`
	Zoom   int       `json:"zoom"`
}

// Locator resolves the user's position.
type Locator interface {
	Locate(ctx context.Context) (orb.Point, error)
}

type LocatorFunc func(ctx context.Context) (orb.Point, error)

func (f LocatorFunc) Locate(ctx context.Context) (orb.Point, error) { return f(ctx) }

type Camera struct {
	logger  *slog.Logger
	timeout time.Duration

	mu  sync.Mutex
	pos Position
}

func New(log *slog.Logger, home Position, locateTimeout time.Duration) *Camera {
	if locateTimeout <= 0 {
		locateTimeout = 5 * time.Second
	}
	home.Zoom = clampZoom(home.Zoom)
	return &Camera{logger: log, timeout: locateTimeout, pos: home}
}

func (c *Camera) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// FlyTo moves the viewport. center is [lon, lat].
func (c *Camera) FlyTo(center orb.Point, zoom int) (Position, error) {
	if !valid(center) {
		return c.Position(), fmt.Errorf("center %v out of range", center)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = Position{Center: center, Zoom: clampZoom(zoom)}
	return c.pos, nil
}

// ZoomToMe flies to the located position. Timeouts, denials and bad fixes
// are logged and leave the viewport unchanged; ok reports whether it moved.
func (c *Camera) ZoomToMe(ctx context.Context, loc Locator) (pos Position, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type fix struct {
		p   orb.Point
		err error
	}
	done := make(chan fix, 1)
	go func() {
		p, err := loc.Locate(ctx)
		done <- fix{p, err}
	}()

	var f fix
	select {
	case f = <-done:
	case <-ctx.Done():
		f.err = ctx.Err()
	}
	if f.err != nil {
		c.logger.WarnContext(ctx, "geolocation failed", "err", f.err)
		return c.Position(), false
	}
	p, err := c.FlyTo(f.p, LocateZoom)
	if err != nil {
		c.logger.WarnContext(ctx, "geolocation returned a bad fix", "err", err)
		return p, false
	}
	return p, true
}

func valid(p orb.Point) bool {
	return p.Lon() >= -180 && p.Lon() <= 180 && p.Lat() >= -90 && p.Lat() <= 90
}

func clampZoom(z int) int {
	switch {
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}
