// Package region fetches per-region detail for the detail view. One request
// is outstanding at a time; a newer selection discards older results.
package region

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/ecomap/internal/backend"
	"github.com/mohammed-shakir/ecomap/internal/inflight"
	"github.com/mohammed-shakir/ecomap/internal/logger"
)

// ErrUnresolvedRegion means a favorite's name matched no known region.
var ErrUnresolvedRegion = errors.New("region not found")

type Phase string

const (
	PhaseClosed  Phase = "closed"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseError   Phase = "error"
)

// View is the detail view model. A loaded view with Error set is the shell
// shown when a favorite could not be resolved to a region id.
type View struct {
	Phase    Phase                 `json:"phase"`
	RegionID string                `json:"regionId,omitempty"`
	Name     string                `json:"name,omitempty"`
	Detail   *backend.RegionDetail `json:"detail,omitempty"`
	Error    string                `json:"error,omitempty"`
}

type Backend interface {
	RegionDetail(ctx context.Context, id string) (backend.RegionDetail, error)
	ListRegions(ctx context.Context) ([]backend.Region, error)
}

type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

type Fetcher struct {
	logger *slog.Logger
	api    Backend
	ch     *inflight.Channel
	base   context.Context

	details *expirable.LRU[string, backend.RegionDetail]
	lists   *expirable.LRU[string, []backend.Region]

	mu   sync.Mutex
	view View
	wg   sync.WaitGroup
}

const allRegions = "all"

func New(base context.Context, log *slog.Logger, api Backend, cfg Config) *Fetcher {
	if base == nil {
		base = context.Background()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &Fetcher{
		logger:  log,
		api:     api,
		ch:      inflight.New("region"),
		base:    logger.WithChannel(base, "region"),
		details: expirable.NewLRU[string, backend.RegionDetail](cfg.CacheSize, nil, cfg.CacheTTL),
		lists:   expirable.NewLRU[string, []backend.Region](1, nil, cfg.CacheTTL),
		view:    View{Phase: PhaseClosed},
	}
}

// Select opens the view for id and fetches its detail, superseding any
// earlier selection.
func (f *Fetcher) Select(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startLocked(id, "")
}

// SelectByName resolves name against the region list (case-insensitive) and
// opens its detail. The lookup itself runs on the region channel, so a newer
// selection supersedes it too.
func (f *Fetcher) SelectByName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.ch.Start(f.base)
	f.view = View{Phase: PhaseLoading, Name: name}
	f.wg.Add(1)
	go f.resolve(t, name)
}

// Close hides the view and drops any outstanding request.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch.Cancel()
	f.view = View{Phase: PhaseClosed}
}

func (f *Fetcher) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Wait blocks until every request started so far has finished.
func (f *Fetcher) Wait() { f.wg.Wait() }

// Regions returns the region list, cached for the configured TTL.
func (f *Fetcher) Regions(ctx context.Context) ([]backend.Region, error) {
	if rs, ok := f.lists.Get(allRegions); ok {
		return rs, nil
	}
	rs, err := f.api.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	f.lists.Add(allRegions, rs)
	return rs, nil
}

// Resolve finds the id of the region called name, ignoring case and
// surrounding space.
func Resolve(regions []backend.Region, name string) (string, error) {
	want := strings.TrimSpace(name)
	for _, r := range regions {
		if strings.EqualFold(strings.TrimSpace(r.Name), want) {
			return string(r.ID), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnresolvedRegion, name)
}

func (f *Fetcher) startLocked(id, name string) {
	t := f.ch.Start(f.base)
	f.view = View{Phase: PhaseLoading, RegionID: id, Name: name}
	if d, ok := f.details.Get(id); ok {
		t.Done()
		f.view = loaded(id, d)
		return
	}
	f.wg.Add(1)
	go f.fetch(t, id)
}

func (f *Fetcher) resolve(t inflight.Ticket, name string) {
	defer f.wg.Done()

	regions, err := f.Regions(t.Context())

	f.mu.Lock()
	defer f.mu.Unlock()
	if !t.Current() {
		return
	}
	if err != nil {
		t.Done()
		if inflight.IsCancelled(err) {
			return
		}
		f.logger.WarnContext(t.Context(), "region list failed", "err", err)
		f.view = View{Phase: PhaseError, Name: name, Error: "Не удалось загрузить список регионов"}
		return
	}
	id, err := Resolve(regions, name)
	if err != nil {
		t.Done()
		f.logger.InfoContext(t.Context(), "favorite not resolved", "name", name)
		f.view = View{Phase: PhaseLoaded, Name: name, Error: fmt.Sprintf("Не удалось определить регион «%s»", name)}
		return
	}
	f.startLocked(id, name)
}

func (f *Fetcher) fetch(t inflight.Ticket, id string) {
	defer f.wg.Done()
	defer t.Done()

	d, err := f.api.RegionDetail(t.Context(), id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !t.Current() || inflight.IsCancelled(err) {
		return
	}
	if err != nil {
		f.logger.WarnContext(t.Context(), "region detail failed", "region", id, "err", err)
		f.view = View{Phase: PhaseError, RegionID: id, Name: f.view.Name, Error: "Не удалось загрузить данные региона"}
		return
	}
	f.details.Add(id, d)
	f.view = loaded(id, d)
}

func loaded(id string, d backend.RegionDetail) View {
	return View{Phase: PhaseLoaded, RegionID: id, Name: d.Name, Detail: &d}
}
