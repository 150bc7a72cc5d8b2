package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []*amqp.PeriodEvent
	err    error
}

func (r *recordingPublisher) PublishPeriodEvent(_ context.Context, ev *amqp.PeriodEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

// failingStore reports every call as a backend outage.
type failingStore struct{}

func (failingStore) ListPeriods(context.Context) ([]core.Period, error) {
	return nil, errors.Join(core.ErrStorageUnavailable, errors.New("dial tcp: refused"))
}
func (failingStore) GetPeriod(context.Context, string) (*core.Period, error) {
	return nil, errors.Join(core.ErrStorageUnavailable, errors.New("dial tcp: refused"))
}
func (failingStore) InsertPeriod(context.Context, core.Period) error {
	return errors.Join(core.ErrStorageUnavailable, errors.New("dial tcp: refused"))
}
func (failingStore) UpdatePeriod(context.Context, core.Period) (core.UpdateResult, error) {
	return core.UpdateNotFound, errors.Join(core.ErrStorageUnavailable, errors.New("dial tcp: refused"))
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Component: applog.ComponentPeriod, Output: &bytes.Buffer{}})
}

func newService(t *testing.T, pub EventPublisher) (*PeriodService, *memory.Store) {
	t.Helper()
	store := memory.New()
	opts := []Option{WithLogger(quietLogger())}
	if pub != nil {
		opts = append(opts, WithPublisher(pub))
	}
	return NewPeriodService(store, core.DefaultCategories(), opts...), store
}

func january() core.Period {
	return core.Period{
		Key:      "2024_January",
		Incomes:  core.Amounts{"Salary": 1000, "Other Income": 0},
		Expenses: core.Amounts{"Rent": 400, "Utilities": 100, "Groceries": 200, "Saving": 300},
		Comment:  "tight month",
	}
}

func TestCreatePeriod(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, store := newService(t, pub)

	require.NoError(t, svc.CreatePeriod(ctx, january()))
	got, err := store.GetPeriod(ctx, "2024_January")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, january().Equal(*got))

	require.Len(t, pub.events, 1)
	require.Equal(t, amqp.PeriodCreated, pub.events[0].Kind)
	require.Equal(t, "2024_January", pub.events[0].Key)
}

func TestCreatePeriodRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc, store := newService(t, pub)
		require.NoError(t, svc.CreatePeriod(ctx, january()))

		again := january()
		again.Comment = "second try"
		err := svc.CreatePeriod(ctx, again)
		require.ErrorIs(t, err, core.ErrDuplicateKey)

		got, _ := store.GetPeriod(ctx, "2024_January")
		require.Equal(t, "tight month", got.Comment)
		require.Len(t, pub.events, 1)
	})

	t.Run("insufficient income", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc, store := newService(t, pub)
		p := january()
		p.Expenses["Car"] = 1
		require.ErrorIs(t, svc.CreatePeriod(ctx, p), core.ErrInsufficientIncome)

		got, _ := store.GetPeriod(ctx, p.Key)
		require.Nil(t, got)
		require.Empty(t, pub.events)
	})

	t.Run("insufficient income is reported before duplicate", func(t *testing.T) {
		svc, _ := newService(t, nil)
		require.NoError(t, svc.CreatePeriod(ctx, january()))
		p := january()
		p.Incomes["Salary"] = 1
		require.ErrorIs(t, svc.CreatePeriod(ctx, p), core.ErrInsufficientIncome)
	})

	t.Run("unknown category", func(t *testing.T) {
		svc, _ := newService(t, nil)
		p := january()
		p.Incomes["Lottery"] = 5
		require.ErrorIs(t, svc.CreatePeriod(ctx, p), core.ErrUnknownCategory)
	})

	t.Run("wrapping expense total", func(t *testing.T) {
		svc, store := newService(t, nil)
		p := core.Period{
			Key:      "2024_March",
			Incomes:  core.Amounts{"Salary": 0},
			Expenses: core.Amounts{"Rent": math.MaxInt64, "Car": 2},
		}
		require.ErrorIs(t, svc.CreatePeriod(ctx, p), core.ErrAmountTooLarge)

		got, _ := store.GetPeriod(ctx, p.Key)
		require.Nil(t, got)
	})

	t.Run("storage unavailable", func(t *testing.T) {
		svc := NewPeriodService(failingStore{}, core.DefaultCategories(), WithLogger(quietLogger()))
		require.ErrorIs(t, svc.CreatePeriod(ctx, january()), core.ErrStorageUnavailable)
	})
}

func TestCreatePeriodSurvivesPublishFailure(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	svc, store := newService(t, pub)

	require.NoError(t, svc.CreatePeriod(ctx, january()))
	got, _ := store.GetPeriod(ctx, "2024_January")
	require.NotNil(t, got)
}

func TestEditPeriod(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, store := newService(t, pub)
	require.NoError(t, svc.CreatePeriod(ctx, january()))

	res, err := svc.EditPeriod(ctx, january())
	require.NoError(t, err)
	require.Equal(t, core.UpdateUnchanged, res)
	require.Len(t, pub.events, 1, "no event for a no-op edit")

	edited := january()
	edited.Expenses["Rent"] = 350
	res, err = svc.EditPeriod(ctx, edited)
	require.NoError(t, err)
	require.Equal(t, core.UpdateChanged, res)
	require.Len(t, pub.events, 2)
	require.Equal(t, amqp.PeriodUpdated, pub.events[1].Kind)

	got, _ := store.GetPeriod(ctx, edited.Key)
	require.Equal(t, int64(350), got.Expenses["Rent"])

	missing := january()
	missing.Key = "2030_March"
	res, err = svc.EditPeriod(ctx, missing)
	require.NoError(t, err)
	require.Equal(t, core.UpdateNotFound, res)

	tooMuch := january()
	tooMuch.Expenses["Car"] = 10_000
	_, err = svc.EditPeriod(ctx, tooMuch)
	require.ErrorIs(t, err, core.ErrInsufficientIncome)
}

func TestGetPeriodNotFound(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.GetPeriod(context.Background(), "2024_May")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	require.NoError(t, svc.CreatePeriod(ctx, january()))

	d, err := svc.Dashboard(ctx, "2024_January")
	require.NoError(t, err)
	require.Equal(t, core.Totals{Income: 1000, Expense: 1000, Remaining: 0}, d.Totals)
	require.Equal(t, "1,000 USD", d.Labels.TotalIncome)
	require.Equal(t, "0 USD", d.Labels.RemainingBudget)

	cats := core.DefaultCategories()
	require.Len(t, d.Sankey.Nodes, len(cats.Incomes)+1+len(cats.Expenses))
	require.Len(t, d.Sankey.Links, len(cats.Incomes)+len(cats.Expenses))
}

func TestTrendIsChronological(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	for _, key := range []string{"2024_March", "2023_November", "2024_January"} {
		p := january()
		p.Key = key
		require.NoError(t, store.InsertPeriod(ctx, p))
	}

	points, err := svc.Trend(ctx)
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.Equal(t, []string{"2023_November", "2024_January", "2024_March"},
		[]string{points[0].Key, points[1].Key, points[2].Key})
	for _, pt := range points {
		require.Equal(t, int64(1000), pt.TotalIncome)
		require.Equal(t, int64(1000), pt.TotalExpense)
	}
}

func TestPeriodChoicesUsesClock(t *testing.T) {
	svc := NewPeriodService(memory.New(), core.DefaultCategories(),
		WithClock(func() time.Time { return time.Date(2031, time.February, 1, 0, 0, 0, 0, time.UTC) }))
	choices := svc.PeriodChoices()
	require.Equal(t, "2031_January", choices[0])
	require.Equal(t, "2032_December", choices[len(choices)-1])
}
