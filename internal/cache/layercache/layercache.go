// Package layercache puts Redis in front of backend layer fetches.
package layercache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/ecomap/internal/cache/keys"
	"github.com/mohammed-shakir/ecomap/internal/layers"
)

// Source fetches raw layer payloads; *backend.Client satisfies it.
type Source interface {
	FetchLayer(ctx context.Context, lt layers.LayerType) (json.RawMessage, error)
}

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Config struct {
	Origin    string
	TTL       time.Duration
	OpTimeout time.Duration
}

// Cache is a read-through Source. Redis failures degrade to a direct fetch.
type Cache struct {
	logger *slog.Logger
	next   Source
	store  Store
	cfg    Config

	// gen counts invalidations per layer; a fetch that saw an older
	// generation must not write its payload back.
	mu  sync.Mutex
	gen map[layers.LayerType]uint64
}

func New(logger *slog.Logger, next Source, store Store, cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	return &Cache{logger: logger, next: next, store: store, cfg: cfg, gen: map[layers.LayerType]uint64{}}
}

func (c *Cache) Key(lt layers.LayerType) string {
	return keys.Layer(c.cfg.Origin, string(lt))
}

func (c *Cache) FetchLayer(ctx context.Context, lt layers.LayerType) (json.RawMessage, error) {
	key := c.Key(lt)

	gctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	val, found, err := c.store.Get(gctx, key)
	cancel()
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		c.logger.Warn("layer cache read failed", "layer", lt, "err", err)
	case found:
		c.logger.Debug("layer cache hit", "layer", lt, "bytes", len(val))
		return json.RawMessage(val), nil
	}

	seen := c.generation(lt)
	raw, err := c.next.FetchLayer(ctx, lt)
	if err != nil {
		return nil, err
	}
	if !isArray(raw) {
		return raw, nil
	}
	c.writeBack(ctx, lt, seen, raw)
	return raw, nil
}

func (c *Cache) generation(lt layers.LayerType) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[lt]
}

// writeBack writes raw unless lt was invalidated since the fetch began or the
// caller is gone. The write holds mu so an Invalidate cannot interleave.
func (c *Cache) writeBack(ctx context.Context, lt layers.LayerType, seen uint64, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || c.gen[lt] != seen {
		c.logger.Debug("layer cache write skipped", "layer", lt)
		return
	}
	sctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	if err := c.store.Set(sctx, c.Key(lt), raw, c.cfg.TTL); err != nil {
		c.logger.Warn("layer cache write failed", "layer", lt, "err", err)
	}
}

// Invalidate drops the cached payload of lt. Fetches already in flight will
// not write their result back.
func (c *Cache) Invalidate(ctx context.Context, lt layers.LayerType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[lt]++
	dctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	if err := c.store.Del(dctx, c.Key(lt)); err != nil {
		return fmt.Errorf("invalidate layer %s: %w", lt, err)
	}
	return nil
}

func isArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
