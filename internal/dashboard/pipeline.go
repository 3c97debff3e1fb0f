package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"analyticsScope/internal/config"
	"analyticsScope/internal/model"
	"analyticsScope/internal/series"
	"analyticsScope/internal/subgraph"
)

// ServiceFactory builds the query service for a subgraph endpoint.
type ServiceFactory func(endpoint string) subgraph.QueryService

// Options tune a Pipeline.
type Options struct {
	PageSize    int
	Concurrency int
	// Now is used for calendar based summaries; defaults to time.Now.
	Now func() time.Time
}

// Pipeline fetches every configured entity and reconciles the results into a Snapshot.
type Pipeline struct {
	envs       []config.Environment
	decimals   *config.Decimals
	normalizer *series.Normalizer
	factory    ServiceFactory
	opts       Options
	logger     *zap.Logger

	mu       sync.Mutex
	services map[string]subgraph.QueryService
}

// NewPipeline builds a Pipeline. envs must already carry resolved collateral decimals.
func NewPipeline(envs []config.Environment, factory ServiceFactory, opts Options, logger *zap.Logger) (*Pipeline, error) {
	if factory == nil {
		return nil, fmt.Errorf("service factory is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = subgraph.DefaultPageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	decimals, err := config.BuildDecimals(envs)
	if err != nil {
		return nil, fmt.Errorf("build decimals: %w", err)
	}

	return &Pipeline{
		envs:       envs,
		decimals:   decimals,
		normalizer: series.NewNormalizer(decimals),
		factory:    factory,
		opts:       opts,
		logger:     logger,
		services:   make(map[string]subgraph.QueryService),
	}, nil
}

// Decimals returns the decimals table the pipeline normalizes with.
func (p *Pipeline) Decimals() *config.Decimals {
	return p.decimals
}

func (p *Pipeline) service(endpoint string) subgraph.QueryService {
	p.mu.Lock()
	defer p.mu.Unlock()
	svc, ok := p.services[endpoint]
	if !ok {
		svc = p.factory(endpoint)
		p.services[endpoint] = svc
	}
	return svc
}

// Build runs one complete fetch and reconcile pass.
func (p *Pipeline) Build(ctx context.Context) (*Snapshot, error) {
	affiliates, total, err := p.affiliates(ctx)
	if err != nil {
		return nil, err
	}
	solvers, err := p.solvers(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Affiliates:  affiliates,
		Solvers:     solvers,
		Summary:     summarize(affiliates, total, p.opts.Now()),
		Decimals:    p.decimals.All(),
		GeneratedAt: p.opts.Now().UTC(),
	}
	return snap, nil
}

func summarize(affiliates []*AffiliateHistory, total *model.TotalHistory, now time.Time) Summary {
	daily := make([][]*model.DailyHistory, 0, len(affiliates))
	monthly := make([][]*model.MonthlyHistory, 0, len(affiliates))
	lastMonth := make([]*model.DailyHistory, 0)
	for _, a := range affiliates {
		daily = append(daily, a.Daily)
		monthly = append(monthly, a.Monthly)
		lastMonth = append(lastMonth, series.LastCalendarMonth(a.Daily, now)...)
	}

	return Summary{
		Today:       series.MergeAll(model.DailySchema, series.Last(daily...)),
		LastMonth:   series.MergeAll(model.DailySchema, lastMonth),
		Total:       total,
		LastMonthly: series.MergeAll(model.MonthlySchema, series.SecondToLast(monthly...)),
	}
}

type affiliateJob struct {
	env   *config.Environment
	index model.Index
	from  string
}

type affiliateResult struct {
	daily   []*model.DailyHistory
	weekly  []*model.WeeklyHistory
	monthly []*model.MonthlyHistory
	totals  []*model.TotalHistory
}

func (p *Pipeline) affiliates(ctx context.Context) ([]*AffiliateHistory, *model.TotalHistory, error) {
	jobs := make([]affiliateJob, 0)
	for i := range p.envs {
		env := &p.envs[i]
		for _, aff := range env.Affiliates {
			jobs = append(jobs, affiliateJob{
				env: env,
				index: model.Index{
					ID:        len(jobs),
					Name:      aff.Name,
					Address:   aff.Address,
					MainColor: aff.MainColor,
				},
				from: aff.FromTimestamp,
			})
		}
	}

	results := make([]affiliateResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := p.fetchAffiliate(gctx, job)
			if err != nil {
				return fmt.Errorf("affiliate %s on %s: %w", job.index.Name, job.env.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	groups := make([]*AffiliateHistory, 0, len(jobs))
	totals := make([]*model.TotalHistory, 0, len(jobs))
	for i, res := range results {
		totals = append(totals, res.totals...)
		group := &AffiliateHistory{
			Index:   jobs[i].index,
			Daily:   res.daily,
			Weekly:  res.weekly,
			Monthly: res.monthly,
		}
		if group.Empty() {
			p.logger.Debug("affiliate has no history", zap.String("affiliate", group.Index.Name), zap.String("address", group.Index.Address))
			continue
		}
		groups = append(groups, group)
	}

	if err := alignAffiliates(groups); err != nil {
		return nil, nil, err
	}

	merged := series.MergeByName(groups, model.DailySchema)
	return merged, series.MergeAll(model.TotalSchema, totals), nil
}

func alignAffiliates(groups []*AffiliateHistory) error {
	dailyDates := series.CollectAllDates(groups, model.KindDaily)
	weeklyDates := series.CollectAllDates(groups, model.KindWeekly)
	monthlyDates := series.CollectAllDates(groups, model.KindMonthly)

	for _, g := range groups {
		var err error
		if g.Daily, err = series.Justify(model.DailySchema, g.Daily, dailyDates, g.Index.Address); err != nil {
			return fmt.Errorf("align %s: %w", g.Index.Name, err)
		}
		if g.Weekly, err = series.Justify(model.WeeklySchema, g.Weekly, weeklyDates, g.Index.Address); err != nil {
			return fmt.Errorf("align %s: %w", g.Index.Name, err)
		}
		if g.Monthly, err = series.Justify(model.MonthlySchema, g.Monthly, monthlyDates, g.Index.Address); err != nil {
			return fmt.Errorf("align %s: %w", g.Index.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) fetchAffiliate(ctx context.Context, job affiliateJob) (affiliateResult, error) {
	source := []subgraph.Condition{{
		Field:    model.FieldAccountSource,
		Operator: "contains",
		Value:    subgraph.Quote(job.index.Address),
	}}
	totalConditions := append([]subgraph.Condition{}, source...)
	if len(job.env.Collaterals) > 0 {
		totalConditions = append(totalConditions, subgraph.Condition{
			Field:    model.FieldCollateral,
			Operator: "in",
			Value:    subgraph.QuoteList(job.env.Collaterals),
		})
	}

	daily, err := bucketQuery(p.normalizer, model.DailySchema, job.env.Name, job.index.Address, source)
	if err != nil {
		return affiliateResult{}, err
	}
	weekly, err := bucketQuery(p.normalizer, model.WeeklySchema, job.env.Name, job.index.Address, source)
	if err != nil {
		return affiliateResult{}, err
	}
	monthly, err := bucketQuery(p.normalizer, model.MonthlySchema, job.env.Name, job.index.Address, source)
	if err != nil {
		return affiliateResult{}, err
	}
	total, err := bucketQuery(p.normalizer, model.TotalSchema, job.env.Name, job.index.Address, totalConditions)
	if err != nil {
		return affiliateResult{}, err
	}

	fetcher := subgraph.NewFetcher(p.service(job.env.SubgraphURL), p.logger)
	start := time.Now()
	loaded, err := subgraph.LoadAll(ctx, fetcher, []subgraph.Query[model.Bucket]{daily, weekly, monthly, total}, subgraph.LoadOptions{
		PageSize: p.opts.PageSize,
		InitialCursors: map[string]string{
			daily.Name:   job.from,
			weekly.Name:  "0",
			monthly.Name: "0",
			total.Name:   "0",
		},
	})
	if err != nil {
		return affiliateResult{}, err
	}

	res := affiliateResult{
		daily:   typed[*model.DailyHistory](loaded[daily.Name]),
		weekly:  typed[*model.WeeklyHistory](loaded[weekly.Name]),
		monthly: typed[*model.MonthlyHistory](loaded[monthly.Name]),
		totals:  typed[*model.TotalHistory](loaded[total.Name]),
	}
	p.logger.Info("affiliate loaded",
		zap.String("environment", job.env.Name),
		zap.String("affiliate", job.index.Name),
		zap.Int("daily", len(res.daily)),
		zap.Int("weekly", len(res.weekly)),
		zap.Int("monthly", len(res.monthly)),
		zap.Int("totals", len(res.totals)),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

type solverJob struct {
	env   *config.Environment
	index model.Index
}

func (p *Pipeline) solvers(ctx context.Context) ([]*SolverHistory, error) {
	jobs := make([]solverJob, 0)
	for i := range p.envs {
		env := &p.envs[i]
		for _, s := range env.Solvers {
			jobs = append(jobs, solverJob{
				env: env,
				index: model.Index{
					ID:        len(jobs),
					Name:      s.Name,
					Address:   s.Address,
					MainColor: s.MainColor,
				},
			})
		}
	}

	results := make([][]*model.SolverDailyHistory, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := p.fetchSolver(gctx, job)
			if err != nil {
				return fmt.Errorf("solver %s on %s: %w", job.index.Name, job.env.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := make([]*SolverHistory, 0, len(jobs))
	for i, daily := range results {
		if len(daily) == 0 {
			continue
		}
		groups = append(groups, &SolverHistory{
			Index:   jobs[i].index,
			Daily:   series.Collapse(model.SolverDailySchema, daily),
			Weekly:  []*model.WeeklyHistory{},
			Monthly: []*model.MonthlyHistory{},
		})
	}

	dates := series.CollectAllDates(groups, model.KindSolverDaily)
	for _, g := range groups {
		aligned, err := series.Justify(model.SolverDailySchema, g.Daily, dates, g.Index.Address)
		if err != nil {
			return nil, fmt.Errorf("align %s: %w", g.Index.Name, err)
		}
		g.Daily = aligned
	}

	return series.MergeByName(groups, model.SolverDailySchema), nil
}

func (p *Pipeline) fetchSolver(ctx context.Context, job solverJob) ([]*model.SolverDailyHistory, error) {
	decode, err := series.Decoder(p.normalizer, model.SolverDailySchema, job.env.Name, job.index.Address)
	if err != nil {
		return nil, err
	}
	q := subgraph.Query[*model.SolverDailyHistory]{
		Name:   model.SolverDailySchema.Entity,
		Entity: model.SolverDailySchema.Entity,
		Fields: model.SolverDailySchema.QueryFields(),
		Conditions: []subgraph.Condition{{
			Field:    model.FieldSolver,
			Operator: "contains",
			Value:    subgraph.Quote(job.index.Address),
		}},
		OrderBy: model.FieldTimestamp,
		Decode:  decode,
	}

	fetcher := subgraph.NewFetcher(p.service(job.env.SubgraphURL), p.logger)
	loaded, err := subgraph.LoadAll(ctx, fetcher, []subgraph.Query[*model.SolverDailyHistory]{q}, subgraph.LoadOptions{PageSize: p.opts.PageSize})
	if err != nil {
		return nil, err
	}
	p.logger.Info("solver loaded",
		zap.String("environment", job.env.Name),
		zap.String("solver", job.index.Name),
		zap.Int("daily", len(loaded[q.Name])),
	)
	return loaded[q.Name], nil
}

// bucketQuery builds a query whose records decode into schema buckets rescaled for address in environment.
func bucketQuery[T model.Bucket](n *series.Normalizer, schema model.Schema[T], environment, address string, conditions []subgraph.Condition) (subgraph.Query[model.Bucket], error) {
	decode, err := series.Decoder(n, schema, environment, address)
	if err != nil {
		return subgraph.Query[model.Bucket]{}, err
	}
	return subgraph.Query[model.Bucket]{
		Name:       schema.Entity,
		Entity:     schema.Entity,
		Fields:     schema.QueryFields(),
		Conditions: conditions,
		OrderBy:    model.FieldTimestamp,
		Decode: func(r subgraph.Record) (model.Bucket, error) {
			b, err := decode(r)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	}, nil
}

func typed[T model.Bucket](buckets []model.Bucket) []T {
	out := make([]T, 0, len(buckets))
	for _, b := range buckets {
		if t, ok := b.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
