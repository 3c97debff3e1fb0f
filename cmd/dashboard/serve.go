package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"analyticsScope/internal/api"
	"analyticsScope/internal/dashboard"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	state := dashboard.NewState()
	if a.snapshot != nil {
		snap, ok, err := a.snapshot.Load()
		if err != nil {
			a.logger.Warn("stored snapshot unreadable", zap.Error(err))
		} else if ok {
			state.Publish(snap, snap.GeneratedAt)
			a.logger.Info("stored snapshot loaded", zap.Time("generated_at", snap.GeneratedAt))
		}
	}

	service := dashboard.NewService(a.pipeline, state, a.cfg.Interval, a.sinks, a.recorder, a.logger)
	server := api.NewServer(state, a.logger,
		api.WithAddr(a.cfg.Listen),
		api.WithMetrics(a.registry),
	)

	a.logger.Info("dashboard start",
		zap.Duration("interval", a.cfg.Interval),
		zap.String("listen", a.cfg.Listen),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	return g.Wait()
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	service := dashboard.NewService(a.pipeline, dashboard.NewState(), 0, a.sinks, a.recorder, a.logger)
	start := time.Now()
	snap, err := service.RunOnce(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("snapshot complete",
		zap.Int("affiliates", len(snap.Affiliates)),
		zap.Int("solvers", len(snap.Solvers)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
