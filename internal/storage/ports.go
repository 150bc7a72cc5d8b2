// Package storage defines the period store port and its SQLite implementation.
package storage

import (
	"context"
	"fmt"

	"budget/internal/core"
)

// PeriodStore persists period records. Implementations enforce key
// uniqueness themselves and never cache reads.
type PeriodStore interface {
	// ListPeriods returns every stored period in no particular order.
	ListPeriods(ctx context.Context) ([]core.Period, error)
	// GetPeriod returns nil, nil when the key is unknown.
	GetPeriod(ctx context.Context, key string) (*core.Period, error)
	// InsertPeriod fails with core.ErrDuplicateKey when the key exists.
	InsertPeriod(ctx context.Context, p core.Period) error
	// UpdatePeriod replaces incomes, expenses and comment of an existing key.
	UpdatePeriod(ctx context.Context, p core.Period) (core.UpdateResult, error)
}

// Unavailable tags a backend failure so callers can match it with
// errors.Is(err, core.ErrStorageUnavailable) while keeping the driver error.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStorageUnavailable, err)
}
