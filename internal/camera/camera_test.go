package camera

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ecomap/internal/logger"
)

var moscow = Position{Center: orb.Point{37.6176, 55.7558}, Zoom: 4}

func Test_FlyTo(t *testing.T) {
	c := New(logger.Discard(), moscow, time.Second)
	p, err := c.FlyTo(orb.Point{30.3, 59.9}, 99)
	if err != nil {
		t.Fatal(err)
	}
	if p.Zoom != MaxZoom || c.Position().Center != (orb.Point{30.3, 59.9}) {
		t.Fatalf("pos = %+v", c.Position())
	}
	if _, err := c.FlyTo(orb.Point{200, 10}, 5); err == nil {
		t.Fatalf("expected error for lon=200")
	}
	if c.Position().Center != (orb.Point{30.3, 59.9}) {
		t.Fatalf("invalid fly moved the camera")
	}
}

func Test_ZoomToMe_Success(t *testing.T) {
	c := New(logger.Discard(), moscow, time.Second)
	p, ok := c.ZoomToMe(context.Background(), LocatorFunc(func(context.Context) (orb.Point, error) {
		return orb.Point{49.1, 55.8}, nil
	}))
	if !ok || p.Zoom != LocateZoom || p.Center != (orb.Point{49.1, 55.8}) {
		t.Fatalf("p=%+v ok=%v", p, ok)
	}
}

func Test_ZoomToMe_FailSoft(t *testing.T) {
	c := New(logger.Discard(), moscow, 30*time.Millisecond)

	// never answers, ignores ctx
	block := make(chan struct{})
	defer close(block)
	p, ok := c.ZoomToMe(context.Background(), LocatorFunc(func(context.Context) (orb.Point, error) {
		<-block
		return orb.Point{}, nil
	}))
	if ok || p != moscow {
		t.Fatalf("timeout: p=%+v ok=%v", p, ok)
	}

	p, ok = c.ZoomToMe(context.Background(), LocatorFunc(func(context.Context) (orb.Point, error) {
		return orb.Point{}, ErrNoLocation
	}))
	if ok || p != moscow {
		t.Fatalf("denied: p=%+v ok=%v", p, ok)
	}
}
