package usage

import (
	"context"
	"errors"
	"math"
	"time"

	"budget-analyzer/internal/budget"
)

type store interface {
	Counts(ctx context.Context, ownerID, period string) (map[Metric]int, error)
	// Consume adds n to the counter unless the result would exceed limit
	// (limit <= 0 disables the check). It returns the new value.
	Consume(ctx context.Context, ownerID, period string, m Metric, n, limit int) (int, error)
	Reset(ctx context.Context, ownerID, period string) error
}

// Service enforces monthly quotas per analysis kind.
type Service struct {
	store  store
	limits Limits
	env    string
	now    func() time.Time
}

// NewService constructs a Service with in-memory store.
func NewService(limits Limits, env string) *Service {
	return &Service{store: newMemoryStore(), limits: limits, env: env, now: time.Now}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store, limits Limits, env string) *Service {
	return &Service{store: pgStore, limits: limits, env: env, now: time.Now}
}

// Limits returns the configured quotas.
func (s *Service) Limits() Limits { return s.limits }

// Check reports ErrLimitReached when the counter for kind is exhausted.
func (s *Service) Check(ctx context.Context, ownerID string, kind budget.Kind) error {
	m := MetricFor(kind)
	limit := s.limits.of(m)
	if limit <= 0 {
		return nil
	}
	counts, err := s.store.Counts(ctx, ownerID, Period(s.now()))
	if err != nil {
		return err
	}
	if used := counts[m]; used >= limit {
		return &LimitError{Metric: m, Used: used, Limit: limit}
	}
	return nil
}

// Consume records one analysis of the given kind.
func (s *Service) Consume(ctx context.Context, ownerID string, kind budget.Kind) (int, error) {
	m := MetricFor(kind)
	limit := s.limits.of(m)
	used, err := s.store.Consume(ctx, ownerID, Period(s.now()), m, 1, limit)
	if errors.Is(err, ErrLimitReached) {
		return used, &LimitError{Metric: m, Used: used, Limit: limit}
	}
	return used, err
}

// Stats returns the counters of the current month.
func (s *Service) Stats(ctx context.Context, ownerID string) (Stats, error) {
	now := s.now()
	counts, err := s.store.Counts(ctx, ownerID, Period(now))
	if err != nil {
		return Stats{}, err
	}
	next := NextReset(now)
	stats := Stats{
		UserID:      ownerID,
		Environment: s.env,
		Period:      Period(now),
		CurrentMonth: MonthCounts{
			BudgetAnalyses: counts[MetricBudget],
			PDFAnalyses:    counts[MetricPDF],
		},
		Limits:  s.limits,
		Metrics: make(map[Metric]UsageMetric, len(Metrics)),
	}
	for _, m := range Metrics {
		used, limit := counts[m], s.limits.of(m)
		stats.Metrics[m] = UsageMetric{
			Current:    used,
			Limit:      limit,
			Remaining:  remaining(used, limit),
			Percentage: percentage(used, limit),
			ResetType:  "monthly",
			NextReset:  next,
		}
	}
	stats.UsagePercentage = Percentages{
		BudgetAnalyses: stats.Metrics[MetricBudget].Percentage,
		PDFAnalyses:    stats.Metrics[MetricPDF].Percentage,
	}
	return stats, nil
}

// Reset clears the counters of the current month.
func (s *Service) Reset(ctx context.Context, ownerID string) error {
	return s.store.Reset(ctx, ownerID, Period(s.now()))
}

func remaining(used, limit int) int {
	if limit <= 0 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

func percentage(used, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(float64(used)/float64(limit)*1000) / 10
}
