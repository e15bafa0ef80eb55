package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/ecomap/internal/api"
	"github.com/mohammed-shakir/ecomap/internal/core/config"
	"github.com/mohammed-shakir/ecomap/internal/core/observability"
	"github.com/mohammed-shakir/ecomap/internal/core/server"
	"github.com/mohammed-shakir/ecomap/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/ecomap/internal/layers"
	"github.com/mohammed-shakir/ecomap/internal/metrics"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the map client HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides ADDR)")
	return cmd
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, "ecomap")
	if err != nil {
		return err
	}
	defer a.close()

	observability.ExposeBuildInfo(Version)
	a.log.Info("starting ecomap",
		"addr", cfg.Addr,
		"version", Version,
		"backend", cfg.APIBaseURL,
		"layer_cache", a.cache != nil,
		"logged_in", a.sess.LoggedIn())

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.Config{
			Addr: cfg.MetricsAddr,
			Path: "/metrics",
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		p.TrackActiveLayer(func() layers.LayerType { return a.ctrl.Status().Layer })
		metricsHandler = p.Handler()
		if cfg.MetricsAddr != "" {
			go func() {
				if err := p.Serve(ctx, a.log); err != nil {
					a.log.Error("metrics listener stopped", "err", err)
				}
			}()
		}
	}

	var probes server.Probes
	if a.store != nil {
		probes.Cache = a.store
	}
	if cfg.Invalidation.Enabled {
		if a.cache == nil {
			a.log.Warn("invalidation enabled without REDIS_ADDR; consumer not started")
		} else {
			consumer := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg.Invalidation), a.log, &a.zl, a.cache, a.ctrl)
			probes.Invalidation = consumer
			go func() {
				if err := consumer.Start(ctx); err != nil {
					a.log.Error("invalidation consumer stopped", "err", err)
				}
			}()
		}
	}

	h := api.New(api.Deps{
		Logger:        a.log,
		Session:       a.sess,
		Registry:      a.reg,
		Controller:    a.ctrl,
		Overlay:       a.ov,
		Favorites:     a.client,
		Region:        a.region,
		Search:        a.search,
		Camera:        a.camera,
		ClusterMaxRes: cfg.ClusterMaxRes,
	})

	err = server.Run(ctx, cfg, a.log, server.NewRouter(a.log, h, metricsHandler, probes))
	stop()
	if err != nil {
		a.log.Error("server exited", "err", err)
		return err
	}
	a.log.Info("ecomap stopped")
	return nil
}
