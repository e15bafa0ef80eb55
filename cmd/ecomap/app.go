package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/ecomap/internal/backend"
	"github.com/mohammed-shakir/ecomap/internal/cache/layercache"
	"github.com/mohammed-shakir/ecomap/internal/cache/redisstore"
	"github.com/mohammed-shakir/ecomap/internal/camera"
	"github.com/mohammed-shakir/ecomap/internal/core/config"
	"github.com/mohammed-shakir/ecomap/internal/core/httpclient"
	"github.com/mohammed-shakir/ecomap/internal/layers/color"
	"github.com/mohammed-shakir/ecomap/internal/layers/controller"
	"github.com/mohammed-shakir/ecomap/internal/layers/registry"
	"github.com/mohammed-shakir/ecomap/internal/logger"
	"github.com/mohammed-shakir/ecomap/internal/overlay"
	"github.com/mohammed-shakir/ecomap/internal/region"
	"github.com/mohammed-shakir/ecomap/internal/search"
	"github.com/mohammed-shakir/ecomap/internal/session"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg    config.Config
	zl     zerolog.Logger
	log    *slog.Logger
	sess   *session.State
	client *backend.Client
	store  *redisstore.Client
	cache  *layercache.Cache
	reg    *registry.Registry
	ov     *overlay.Manager
	ctrl   *controller.Controller
	region *region.Fetcher
	search *search.Channel
	camera *camera.Camera
}

func newLogger(cfg config.Config, component string) zerolog.Logger {
	return logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: component,
	}, os.Stdout)
}

// newApp wires every component. The redis layer cache is optional and only
// built when REDIS_ADDR is set.
func newApp(ctx context.Context, cfg config.Config, component string) (*app, error) {
	a := &app{cfg: cfg, zl: newLogger(cfg, component)}
	a.log = logger.NewSlog(&a.zl)

	a.sess = session.New(cfg.APIToken)
	httpClient := httpclient.WithBearer(httpclient.NewOutbound(), a.sess.Token)

	client, err := backend.New(a.log, httpClient, cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	a.client = client

	var src controller.LayerSource = client
	if cfg.RedisAddr != "" {
		store, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("layer cache: %w", err)
		}
		a.store = store
		a.cache = layercache.New(a.log, client, store, layercache.Config{
			Origin:    cfg.APIBaseURL,
			TTL:       cfg.LayerCacheTTL,
			OpTimeout: cfg.CacheOpTimeout,
		})
		src = a.cache
	}

	ramps, err := color.LoadRamps(cfg.LayerStylesFile)
	if err != nil {
		a.close()
		return nil, err
	}
	a.reg = registry.Default(color.NewEncoder(ramps))
	a.ov = overlay.NewManager(overlay.NewMemoryRenderer())

	a.ctrl = controller.New(ctx, a.log, a.reg, src, a.ov)
	a.ctrl.SetLoggedIn(a.sess.LoggedIn())
	a.sess.OnChange(a.ctrl.SetLoggedIn)

	a.region = region.New(ctx, a.log, client, region.Config{
		CacheSize: cfg.RegionCacheSize,
		CacheTTL:  cfg.RegionCacheTTL,
	})
	a.search = search.New(ctx, a.log, client, search.Config{
		Debounce: cfg.SearchDebounce,
		MinChars: cfg.SearchMinChars,
	})
	home := camera.Position{Center: orb.Point{cfg.MapCenterLon, cfg.MapCenterLat}, Zoom: cfg.MapZoom}
	a.camera = camera.New(a.log, home, cfg.GeolocationTimeout)
	return a, nil
}

// close waits for outstanding fetches and releases the cache connection.
func (a *app) close() {
	if a.ctrl != nil {
		a.ctrl.Wait()
	}
	if a.region != nil {
		a.region.Wait()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close layer cache", "err", err)
		}
	}
}
