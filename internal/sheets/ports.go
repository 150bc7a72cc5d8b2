package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter mirrors per-period totals into an external sheet.
	SummaryWriter interface {
		// UpsertSummary replaces the row for s.Key, or appends one.
		UpsertSummary(ctx context.Context, s core.PeriodSummary) error
	}
)

// Header is the first row written to an empty summary sheet.
var Header = []string{"Period", "Total Income", "Total Expense", "Remaining", "Comment"}

// Row renders a summary in Header column order.
func Row(s core.PeriodSummary) []any {
	return []any{s.Key, s.TotalIncome, s.TotalExpense, s.Remaining, s.Comment}
}
