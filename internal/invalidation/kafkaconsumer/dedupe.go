package kafkaconsumer

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/ecomap/internal/invalidation"
)

// eventDedupe remembers the newest applied event per layer and record so
// redelivered messages are not applied twice.
type eventDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, int64]
}

func newEventDedupe(size int) *eventDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, int64](size)
	return &eventDedupe{lru: c}
}

func dedupeKey(ev invalidation.Event) string {
	return fmt.Sprintf("%s|%s|%v", ev.Layer, ev.Op, ev.RecordID)
}

// applied reports whether an event at least as new as ev was already handled.
func (d *eventDedupe) applied(ev invalidation.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(dedupeKey(ev))
	return ok && ev.TS.UnixNano() <= last
}

func (d *eventDedupe) record(ev invalidation.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := dedupeKey(ev)
	if last, ok := d.lru.Get(key); ok && last >= ev.TS.UnixNano() {
		return
	}
	d.lru.Add(key, ev.TS.UnixNano())
}
