// cmd/quant is the command-line front end: indicators, patterns, factor
// values, stock selection and backtests over the stored daily history.
//
// Usage:
//
//	quant select --strategy value --date 2026-06-30
//	quant backtest --strategy macd_cross --from 2025-01-01 --to 2026-06-30
//	quant serve --addr :9090
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"quant-systemv1/config"
	"quant-systemv1/internal/logger"
	"quant-systemv1/internal/metrics"
	"quant-systemv1/internal/pipeline"
	redisstore "quant-systemv1/internal/store/redis"
	"quant-systemv1/internal/store/sqldb"
)

const version = "v1.0.0"

func main() {
	root := &cobra.Command{
		Use:           "quant",
		Short:         "A-share quantitative toolkit",
		Long:          "Technical indicators, candlestick patterns, factor panels, multi-factor stock selection and signal backtests over daily bars.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error), overrides LOG_LEVEL")
	root.PersistentFlags().Bool("json", false, "Print results as JSON")

	root.AddCommand(
		indicatorsCmd(),
		patternsCmd(),
		analyzeCmd(),
		factorsCmd(),
		selectCmd(),
		backtestCmd(),
		strategiesCmd(),
		importCmd(),
		serveCmd(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds the wired stores and observability for one command run.
type app struct {
	cfg        *config.Config
	strategies config.Strategies
	store      *sqldb.Store
	redis      *redisstore.Client
	metrics    *metrics.Metrics
	health     *metrics.HealthStatus
	server     *metrics.Server
	cancel     context.CancelFunc
}

// openApp loads configuration and connects the stores. Redis is optional:
// a failed connection is logged and the run continues without it.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg := config.Load()
	level := cfg.LogLevel
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		level = l
	}
	logger.Init("quant", logger.ParseLevel(level))

	strategies, err := config.LoadStrategies(cfg.StrategyFile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	a := &app{cfg: cfg, strategies: strategies, cancel: cancel}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)
	a.health = metrics.NewHealthStatus()

	if cfg.DBDriver == sqldb.DriverSQLite {
		if dir := filepath.Dir(cfg.DBDSN); dir != "." {
			os.MkdirAll(dir, 0o755)
		}
	}
	a.store, err = sqldb.Open(ctx, sqldb.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		cancel()
		return nil, err
	}
	a.store.ObserveWrite = func(d time.Duration) { a.metrics.SQLWriteDur.Observe(d.Seconds()) }
	a.health.CheckDB(ctx, a.store.DB())

	if cfg.RedisEnabled() {
		rc, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			PanelTTL: cfg.PanelCacheTTL,
			Breaker: redisstore.BreakerConfig{
				OnStateChange: func(_, to int) { a.metrics.SetBreakerState(to) },
			},
		})
		if err != nil {
			slog.Warn("redis unavailable, continuing without cache", "error", err)
		} else {
			a.redis = rc
			rc.OnHit = a.metrics.PanelCacheHits.Inc
			rc.OnMiss = a.metrics.PanelCacheMisses.Inc
			rc.ObserveWrite = func(d time.Duration) { a.metrics.RedisWriteDur.Observe(d.Seconds()) }
			a.health.CheckRedis(ctx, rc.Redis())
		}
	}

	if cfg.MetricsAddr != "" {
		a.health.StartLivenessChecker(ctx, a.redisClient(), a.store.DB(), 10*time.Second)
		a.server = metrics.NewServer(cfg.MetricsAddr, reg, a.health)
		a.server.Start()
	}
	return a, nil
}

func (a *app) redisClient() goredis.UniversalClient {
	if a.redis == nil {
		return nil
	}
	return a.redis.Redis()
}

// stores exposes the wired ports to the pipelines.
func (a *app) stores() pipeline.Stores {
	st := pipeline.Stores{
		Series:       a.store,
		Universe:     a.store,
		Fundamentals: a.store,
		Results:      a.store,
	}
	if a.redis != nil {
		st.Cache = a.redis
		st.Publisher = a.redis
	}
	return st
}

func (a *app) options(cmd *cobra.Command) pipeline.Options {
	bench, _ := cmd.Flags().GetString("benchmark")
	return pipeline.Options{
		Workers:   a.cfg.Workers,
		Benchmark: bench,
		Metrics:   a.metrics,
	}
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Stop(ctx); err != nil {
			slog.Warn("metrics server shutdown", "error", err)
		}
		cancel()
	}
	if a.redis != nil {
		if n := a.redis.PendingCount(); n > 0 {
			slog.Warn("unpublished selections dropped", "pending", n)
		}
		a.redis.Close()
	}
	a.store.Close()
	a.cancel()
}
