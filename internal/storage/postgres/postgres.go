// Package postgres stores periods in PostgreSQL with JSONB category columns.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"budget/internal/core"
	"budget/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.PeriodStore = (*Repository)(nil)

// Connect migrates the schema, opens a pool and pings it.
func Connect(ctx context.Context, url string) (*Repository, error) {
	if err := RunMigrations(url); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storage.Unavailable("ping postgres", err)
	}
	return &Repository{pool: pool}, nil
}

// RunMigrations applies the embedded schema using the pgx/v5 migrate driver.
func RunMigrations(url string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, migrateURL(url))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites the scheme to the one the pgx/v5 driver registers.
func migrateURL(url string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

func (r *Repository) Close() {
	r.pool.Close()
}

func (r *Repository) ListPeriods(ctx context.Context) ([]core.Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, incomes, expenses, comment FROM periods`)
	if err != nil {
		return nil, storage.Unavailable("list periods", err)
	}
	defer rows.Close()

	var periods []core.Period
	for rows.Next() {
		var p core.Period
		if err := rows.Scan(&p.Key, &p.Incomes, &p.Expenses, &p.Comment); err != nil {
			return nil, storage.Unavailable("scan period", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("list periods", err)
	}
	return periods, nil
}

func (r *Repository) GetPeriod(ctx context.Context, key string) (*core.Period, error) {
	p, err := getPeriod(ctx, r.pool, key, false)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) InsertPeriod(ctx context.Context, p core.Period) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO periods (key, incomes, expenses, comment) VALUES ($1, $2, $3, $4)`,
		p.Key, p.Incomes.Clone(), p.Expenses.Clone(), p.Comment)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert period %s: %w", p.Key, core.ErrDuplicateKey)
		}
		return storage.Unavailable("insert period", err)
	}
	return nil
}

func (r *Repository) UpdatePeriod(ctx context.Context, p core.Period) (core.UpdateResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return core.UpdateNotFound, storage.Unavailable("begin update", err)
	}
	defer tx.Rollback(ctx)

	current, err := getPeriod(ctx, tx, p.Key, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.UpdateNotFound, nil
	}
	if err != nil {
		return core.UpdateNotFound, err
	}
	if current.Equal(p) {
		return core.UpdateUnchanged, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE periods SET incomes = $2, expenses = $3, comment = $4, updated_at = NOW() WHERE key = $1`,
		p.Key, p.Incomes.Clone(), p.Expenses.Clone(), p.Comment)
	if err != nil {
		return core.UpdateNotFound, storage.Unavailable("update period", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.UpdateNotFound, storage.Unavailable("commit update", err)
	}

	slog.InfoContext(ctx, "Period updated in PostgreSQL", "period_key", p.Key)
	return core.UpdateChanged, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getPeriod(ctx context.Context, q querier, key string, lock bool) (core.Period, error) {
	query := `SELECT key, incomes, expenses, comment FROM periods WHERE key = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var p core.Period
	err := q.QueryRow(ctx, query, key).Scan(&p.Key, &p.Incomes, &p.Expenses, &p.Comment)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return p, storage.Unavailable("get period", err)
	}
	return p, err
}
