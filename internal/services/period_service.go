package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/storage"
)

// EventPublisher announces period writes. The AMQP client satisfies it.
type EventPublisher interface {
	PublishPeriodEvent(ctx context.Context, ev *amqp.PeriodEvent) error
}

// Dashboard is everything needed to render one period's overview.
type Dashboard struct {
	Period core.Period
	Totals core.Totals
	Labels MetricLabels
	Sankey core.Sankey
}

// MetricLabels are the totals formatted with the configured currency.
type MetricLabels struct {
	TotalIncome     string
	TotalExpense    string
	RemainingBudget string
}

// PeriodService runs the create, edit and reporting flows over a store.
type PeriodService struct {
	store      storage.PeriodStore
	categories core.Categories
	publisher  EventPublisher
	logger     *applog.StructuredLogger
	now        func() time.Time
}

type Option func(*PeriodService)

// WithPublisher enables period events. Pass an untyped nil to disable them.
func WithPublisher(p EventPublisher) Option {
	return func(s *PeriodService) { s.publisher = p }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *PeriodService) { s.logger = applog.NewStructuredLogger(l) }
}

// WithClock overrides time.Now for period choices.
func WithClock(now func() time.Time) Option {
	return func(s *PeriodService) { s.now = now }
}

func NewPeriodService(store storage.PeriodStore, categories core.Categories, opts ...Option) *PeriodService {
	s := &PeriodService{
		store:      store,
		categories: categories,
		logger:     applog.NewStructuredLogger(applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentPeriod)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PeriodService) Categories() core.Categories {
	return s.categories
}

// PeriodChoices lists the keys a new period may take.
func (s *PeriodService) PeriodChoices() []string {
	return core.PeriodChoices(s.now())
}

// ListPeriods returns every period in chronological order.
func (s *PeriodService) ListPeriods(ctx context.Context) ([]core.Period, error) {
	periods, err := s.store.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	core.SortChronologically(periods)
	return periods, nil
}

// GetPeriod returns core.ErrNotFound when the key is unknown.
func (s *PeriodService) GetPeriod(ctx context.Context, key string) (core.Period, error) {
	p, err := s.store.GetPeriod(ctx, key)
	if err != nil {
		return core.Period{}, fmt.Errorf("get period: %w", err)
	}
	if p == nil {
		return core.Period{}, fmt.Errorf("period %s: %w", key, core.ErrNotFound)
	}
	return *p, nil
}

// CreatePeriod checks shape and budget, rejects known keys, then inserts.
func (s *PeriodService) CreatePeriod(ctx context.Context, p core.Period) error {
	if err := s.check(ctx, p, applog.OpCreate); err != nil {
		return err
	}

	periods, err := s.store.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("list existing periods: %w", err)
	}
	if core.IsDuplicatePeriod(p.Key, core.Keys(periods)) {
		err := fmt.Errorf("period %s: %w", p.Key, core.ErrDuplicateKey)
		s.logger.LogRejected(ctx, p.Key, applog.OpCreate, err)
		return err
	}

	if err := s.store.InsertPeriod(ctx, p); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			s.logger.LogRejected(ctx, p.Key, applog.OpCreate, err)
		}
		return fmt.Errorf("create period: %w", err)
	}

	totals := core.ComputeTotals(p)
	s.logger.LogPeriodCreated(ctx, p.Key, totals.Income, totals.Expense)
	s.publish(ctx, p.Key, amqp.PeriodCreated)
	return nil
}

// EditPeriod replaces the values of an existing period and reports whether
// anything changed.
func (s *PeriodService) EditPeriod(ctx context.Context, p core.Period) (core.UpdateResult, error) {
	if err := s.check(ctx, p, applog.OpUpdate); err != nil {
		return core.UpdateNotFound, err
	}

	result, err := s.store.UpdatePeriod(ctx, p)
	if err != nil {
		return core.UpdateNotFound, fmt.Errorf("update period: %w", err)
	}

	s.logger.LogPeriodUpdated(ctx, p.Key, result.String())
	if result == core.UpdateChanged {
		s.publish(ctx, p.Key, amqp.PeriodUpdated)
	}
	return result, nil
}

// Dashboard computes the metrics and Sankey model of a stored period.
func (s *PeriodService) Dashboard(ctx context.Context, key string) (Dashboard, error) {
	p, err := s.GetPeriod(ctx, key)
	if err != nil {
		return Dashboard{}, err
	}
	totals := core.ComputeTotals(p)
	return Dashboard{
		Period: p,
		Totals: totals,
		Labels: MetricLabels{
			TotalIncome:     core.FormatAmount(totals.Income, s.categories.Currency),
			TotalExpense:    core.FormatAmount(totals.Expense, s.categories.Currency),
			RemainingBudget: core.FormatAmount(totals.Remaining, s.categories.Currency),
		},
		Sankey: core.BuildSankey(p, s.categories),
	}, nil
}

// Trend returns the totals of every period in chronological order.
func (s *PeriodService) Trend(ctx context.Context) ([]core.TrendPoint, error) {
	periods, err := s.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	return core.BuildTrendSeries(periods), nil
}

func (s *PeriodService) check(ctx context.Context, p core.Period, op string) error {
	if err := s.categories.CheckPeriod(p); err != nil {
		s.logger.LogRejected(ctx, p.Key, op, err)
		return err
	}
	if err := core.ValidateBudget(p.Incomes, p.Expenses); err != nil {
		s.logger.LogRejected(ctx, p.Key, op, err)
		return err
	}
	return nil
}

// publish never fails the write; the worker's periodic export catches up.
func (s *PeriodService) publish(ctx context.Context, key string, kind amqp.EventKind) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPeriodEvent(ctx, amqp.NewPeriodEvent(key, kind)); err != nil {
		fields := applog.NewFields()
		fields[applog.FieldPeriodKey] = key
		fields[applog.FieldEventKind] = string(kind)
		s.logger.LogError(ctx, "Failed to publish period event", err, applog.OpPublish, fields)
	}
}
