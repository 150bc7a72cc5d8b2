package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// DefaultConcurrency bounds parallel sheet writes during ExportAll.
const DefaultConcurrency = 4

// ExportWorker mirrors period totals from the store into a summary sheet.
type ExportWorker struct {
	store       storage.PeriodStore
	writer      sheets.SummaryWriter
	concurrency int
}

func NewExportWorker(store storage.PeriodStore, writer sheets.SummaryWriter, concurrency int) *ExportWorker {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &ExportWorker{
		store:       store,
		writer:      writer,
		concurrency: concurrency,
	}
}

// HandlePeriodEvent exports the period named by an AMQP event. A period that
// no longer exists is logged and acknowledged.
func (w *ExportWorker) HandlePeriodEvent(ctx context.Context, ev *amqp.PeriodEvent) error {
	slog.InfoContext(ctx, "Processing period event",
		"period_key", ev.Key,
		"event_kind", ev.Kind)

	p, err := w.store.GetPeriod(ctx, ev.Key)
	if err != nil {
		return fmt.Errorf("get period from storage: %w", err)
	}
	if p == nil {
		slog.WarnContext(ctx, "Period not found, skipping export",
			"period_key", ev.Key,
			"timestamp", ev.Timestamp)
		return nil
	}

	if err := w.writer.UpsertSummary(ctx, p.Summary()); err != nil {
		return fmt.Errorf("export period %s: %w", ev.Key, err)
	}

	slog.InfoContext(ctx, "Period exported",
		"period_key", ev.Key,
		"event_kind", ev.Kind)
	return nil
}

// ExportAll exports every stored period. Failures on individual periods do
// not stop the others; they are returned joined.
func (w *ExportWorker) ExportAll(ctx context.Context) (int, error) {
	periods, err := w.store.ListPeriods(ctx)
	if err != nil {
		return 0, fmt.Errorf("list periods: %w", err)
	}
	if len(periods) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Exporting periods", "count", len(periods), "concurrency", w.concurrency)

	var (
		mu       sync.Mutex
		failures []error
		exported int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, p := range periods {
		p := p // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := w.writer.UpsertSummary(gctx, p.Summary())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.ErrorContext(gctx, "Failed to export period", "period_key", p.Key, "error", err)
				failures = append(failures, fmt.Errorf("%s: %w", p.Key, err))
				return nil
			}
			exported++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exported, err
	}

	slog.InfoContext(ctx, "Export finished", "exported", exported, "failed", len(failures))
	return exported, errors.Join(failures...)
}
