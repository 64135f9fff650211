package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/cache/axisstore"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/cache/datasets"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/cache/redisstore"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/config"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/health"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/observability"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/router"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/server"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/logger"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/metrics"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/provider"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/writer"
	"github.com/mohammed-shakir/edr-coverage-engine/pkg/invalidation/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	collectionsFlag := flag.String("collections", "", "collections file (overrides COLLECTIONS_FILE)")
	flag.Parse()

	cfg := config.FromEnv()
	if *collectionsFlag != "" {
		cfg.CollectionsFile = *collectionsFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		SampleN:   cfg.Log.SampleN,
		Service:   "edr-server",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := metrics.Init(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Addr:    cfg.Metrics.Addr,
		Path:    cfg.Metrics.Path,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(p.Registerer(), cfg.Metrics.Enabled)

	colls, err := config.LoadCollections(cfg.CollectionsFile)
	if err != nil {
		appLog.Error("load collections", "file", cfg.CollectionsFile, "err", err)
		return 1
	}
	appLog.Info("starting edr server",
		"addr", cfg.Addr,
		"version", Version,
		"collections", len(colls.List()),
		"axis_cache", cfg.AxisCacheEnabled)

	dsCache := datasets.New(cfg.DatasetCacheSize, datasets.Options{Logger: appLog})

	var (
		axisCache provider.AxisCache
		axisEvict kafka.AxisEvictor
	)
	if cfg.AxisCacheEnabled {
		rc, err := redisstore.New(ctx, cfg.RedisAddr,
			redisstore.WithReadTimeout(cfg.CacheOpTimeout),
			redisstore.WithWriteTimeout(cfg.CacheOpTimeout),
			redisstore.WithPoolSize(32),
		)
		if err != nil {
			appLog.Error("redis connect", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		st := axisstore.New(rc, axisstore.Options{
			Logger:    appLog,
			TTL:       cfg.AxisTTL,
			OpTimeout: cfg.CacheOpTimeout,
		})
		axisCache, axisEvict = st, st
	}

	providers, err := provider.DefaultRegistry().Build(colls, provider.Deps{
		Datasets: dsCache,
		Axes:     axisCache,
		Logger:   appLog,
		BaseURL:  cfg.BaseURL,
		Limits: provider.Limits{
			ItemsMax:         cfg.ItemsLimitMax,
			LocationsDefault: cfg.LocationsLimitDefault,
			LocationsMax:     cfg.LocationsLimitMax,
		},
		QuadSegs: cfg.CircleQuadSegs,
	})
	if err != nil {
		appLog.Error("provider setup failed", "err", err)
		return 1
	}

	inval := kafka.New(kafka.FromEnv(), colls, kafka.Options{
		Logger:   appLog,
		Register: p.Registerer(),
		Datasets: dsCache,
		Axes:     axisEvict,
	})
	if err := inval.Start(ctx); err != nil {
		appLog.Error("invalidation runner", "err", err)
		return 1
	}
	defer inval.Stop()

	opts := server.Options{
		Readiness:   []health.ReadinessReporter{inval},
		CORSOrigins: cfg.CORSOrigins,
	}
	separateMetrics := cfg.Metrics.Enabled && cfg.Metrics.Addr != ""
	if cfg.Metrics.Enabled && !separateMetrics {
		opts.Metrics = p.Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}
	handler := server.NewHandler(appLog, router.New(appLog, providers, writer.DefaultRegistry()), opts)

	g, gctx := errgroup.WithContext(ctx)
	if separateMetrics {
		g.Go(func() error {
			return p.Serve(gctx, cfg.Metrics.Addr, cfg.Metrics.Path, appLog)
		})
	}
	g.Go(func() error {
		return server.Run(gctx, cfg, appLog, handler)
	})

	if err := g.Wait(); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
