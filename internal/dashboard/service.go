package dashboard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"analyticsScope/internal/refresh"
)

// Sink persists or forwards published snapshots.
type Sink interface {
	Name() string
	PutSnapshot(ctx context.Context, snap *Snapshot) error
}

// Metrics receives refresh outcomes.
type Metrics interface {
	ObserveRefresh(d time.Duration, err error, at time.Time)
	SetEntities(surface string, n int)
	RecordSinkError(sink string)
}

// Builder produces snapshots; *Pipeline is the production implementation.
type Builder interface {
	Build(ctx context.Context) (*Snapshot, error)
}

// Service polls the builder and publishes every snapshot to the state and sinks.
type Service struct {
	builder  Builder
	state    *State
	sinks    []Sink
	metrics  Metrics
	interval time.Duration
	logger   *zap.Logger
}

func NewService(builder Builder, state *State, interval time.Duration, sinks []Sink, metrics Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		builder:  builder,
		state:    state,
		sinks:    sinks,
		metrics:  metrics,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	// a load cut short by cancellation is never emitted
	defer s.state.ClearLoading()

	for tick := range refresh.Observe(ctx, s.interval, s.load, s.logger) {
		s.handle(ctx, tick)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// RunOnce performs a single refresh and returns its snapshot.
func (s *Service) RunOnce(ctx context.Context) (*Snapshot, error) {
	snap, err := s.load(ctx)
	s.handle(ctx, refresh.Tick[*Snapshot]{Value: snap, Err: err, At: time.Now().UTC()})
	return snap, err
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	s.state.SetLoading()
	start := time.Now()
	snap, err := s.builder.Build(ctx)
	if s.metrics != nil {
		s.metrics.ObserveRefresh(time.Since(start), err, time.Now())
	}
	return snap, err
}

func (s *Service) handle(ctx context.Context, tick refresh.Tick[*Snapshot]) {
	if tick.Err != nil {
		s.state.Fail(tick.Err, tick.At)
		s.logger.Error("refresh failed", zap.Error(tick.Err))
		return
	}

	snap := tick.Value
	s.state.Publish(snap, tick.At)
	if s.metrics != nil {
		s.metrics.SetEntities("affiliates", len(snap.Affiliates))
		s.metrics.SetEntities("solvers", len(snap.Solvers))
	}
	s.logger.Info("snapshot published",
		zap.Int("affiliates", len(snap.Affiliates)),
		zap.Int("solvers", len(snap.Solvers)),
		zap.Time("generated_at", snap.GeneratedAt),
	)

	for _, sink := range s.sinks {
		if err := sink.PutSnapshot(ctx, snap); err != nil {
			s.logger.Warn("sink failed", zap.String("sink", sink.Name()), zap.Error(err))
			if s.metrics != nil {
				s.metrics.RecordSinkError(sink.Name())
			}
		}
	}
}
