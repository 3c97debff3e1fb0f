package refresh

import (
	"context"
	"time"

	"go.uber.org/zap"

	"analyticsScope/internal/subgraph"
)

// DefaultInterval is used when a non-positive interval is given.
const DefaultInterval = 30 * time.Second

// Tick is the outcome of one load.
type Tick[T any] struct {
	Value T
	Err   error
	At    time.Time
}

// Observe runs load immediately and then once per interval, emitting each outcome.
// Loads never overlap: ticks that fire while a load is running are dropped.
// A failed load is emitted as a Tick with Err set and the next interval is awaited.
// Cancelling ctx stops the loop and closes the channel; a load still in flight is discarded.
func Observe[T any](ctx context.Context, interval time.Duration, load func(context.Context) (T, error), logger *zap.Logger) <-chan Tick[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make(chan Tick[T])
	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for run := 1; ; run++ {
			start := time.Now()
			value, err := load(ctx)
			if ctx.Err() != nil {
				logger.Debug("refresh stopped", zap.Int("run", run))
				return
			}
			if err != nil {
				logger.Warn("refresh failed", zap.Int("run", run), zap.Error(err))
			} else {
				logger.Debug("refresh done", zap.Int("run", run), zap.Duration("took", time.Since(start)))
			}

			select {
			case out <- Tick[T]{Value: value, Err: err, At: time.Now().UTC()}:
			case <-ctx.Done():
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

// ObserveQueries polls a paginated batch of queries.
func ObserveQueries[T any](
	ctx context.Context,
	fetcher *subgraph.Fetcher,
	queries []subgraph.Query[T],
	opts subgraph.LoadOptions,
	interval time.Duration,
	logger *zap.Logger,
) <-chan Tick[map[string][]T] {
	return Observe(ctx, interval, func(ctx context.Context) (map[string][]T, error) {
		return subgraph.LoadAll(ctx, fetcher, queries, opts)
	}, logger)
}
