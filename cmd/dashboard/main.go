package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"analyticsScope/internal/chain"
	"analyticsScope/internal/config"
	"analyticsScope/internal/dashboard"
	"analyticsScope/internal/metrics"
	"analyticsScope/internal/storage"
	"analyticsScope/internal/storage/postgres"
	"analyticsScope/internal/storage/rediscache"
	"analyticsScope/internal/subgraph"
)

func main() {
	root := &cobra.Command{
		Use:          "dashboard",
		Short:        "Subgraph analytics dashboard backend",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the subgraphs and serve the dashboard API",
		RunE:  runServe,
	}
	addCommonFlags(serveCmd)
	serveCmd.Flags().Duration("interval", 30*time.Second, "refresh interval")
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")

	root.AddCommand(serveCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch once, write the snapshot to the configured sinks and exit",
		RunE:  runSnapshot,
	}
	addCommonFlags(snapshotCmd)

	root.AddCommand(snapshotCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page-size", 1000, "records per page per query")
	cmd.Flags().Int("fetch-concurrency", 4, "entities fetched in parallel")
	cmd.Flags().Duration("http-timeout", 30*time.Second, "subgraph request timeout")
	cmd.Flags().Int("max-retries", 0, "retries of transient subgraph failures")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("out", "", "append a summary line per refresh to this JSONL file")
	cmd.Flags().String("snapshot-file", "./data/snapshot.json", "latest snapshot file, empty disables")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN, empty disables")
	cmd.Flags().String("redis-addr", "", "Redis address, empty disables")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database")
	cmd.Flags().String("redis-prefix", "dashboard", "Redis key prefix")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// app bundles everything both subcommands need.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	recorder *metrics.Recorder
	pipeline *dashboard.Pipeline
	sinks    []dashboard.Sink
	snapshot *storage.SnapshotFile
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.recorder = metrics.New(a.registry)

	if len(cfg.Environments) == 0 {
		a.Close()
		return nil, fmt.Errorf("at least one environment is required")
	}

	if err := chain.ResolveCollateralDecimals(ctx, cfg.Environments, chain.RPCDecimals, logger); err != nil {
		a.Close()
		return nil, err
	}

	factory := func(endpoint string) subgraph.QueryService {
		return subgraph.NewClient(endpoint,
			subgraph.WithTimeout(cfg.HTTPTimeout),
			subgraph.WithRetry(cfg.MaxRetries, cfg.RetryBackoff),
			subgraph.WithRecorder(a.recorder),
			subgraph.WithLogger(logger),
		)
	}
	a.pipeline, err = dashboard.NewPipeline(cfg.Environments, factory, dashboard.Options{
		PageSize:    cfg.PageSize,
		Concurrency: cfg.FetchConcurrency,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.openSinks(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("dashboard configured",
		zap.Int("environments", len(cfg.Environments)),
		zap.Int("page_size", cfg.PageSize),
		zap.Int("fetch_concurrency", cfg.FetchConcurrency),
		zap.Int("sinks", len(a.sinks)),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("redis_addr", cfg.RedisAddr),
	)
	return a, nil
}

func (a *app) openSinks(ctx context.Context) error {
	cfg := a.cfg
	if cfg.SnapshotFile != "" {
		a.snapshot = storage.NewSnapshotFile(cfg.SnapshotFile)
		a.sinks = append(a.sinks, a.snapshot)
	}
	if cfg.Out != "" {
		a.sinks = append(a.sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		a.sinks = append(a.sinks, store)
	}
	if cfg.RedisAddr != "" {
		cache := rediscache.NewCache(rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		a.closers = append(a.closers, func() { _ = cache.Close() })
		if err := cache.Ping(ctx); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.sinks = append(a.sinks, cache)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
