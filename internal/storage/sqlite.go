package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ PeriodStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Writers are serialised through a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database file is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return Unavailable("ping", err)
	}
	return nil
}

func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, incomes, expenses, comment FROM periods`)
	if err != nil {
		return nil, Unavailable("list periods", err)
	}
	defer rows.Close()

	var periods []core.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("list periods", err)
	}
	return periods, nil
}

func (r *SQLiteRepository) GetPeriod(ctx context.Context, key string) (*core.Period, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, incomes, expenses, comment FROM periods WHERE key = ?`, key)
	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepository) InsertPeriod(ctx context.Context, p core.Period) error {
	incomes, expenses, err := encodeAmounts(p)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO periods (key, incomes, expenses, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Key, incomes, expenses, p.Comment, now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("insert period %s: %w", p.Key, core.ErrDuplicateKey)
		}
		return Unavailable("insert period", err)
	}

	slog.InfoContext(ctx, "Period saved to SQLite", "period_key", p.Key)
	return nil
}

func (r *SQLiteRepository) UpdatePeriod(ctx context.Context, p core.Period) (core.UpdateResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.UpdateNotFound, Unavailable("begin update", err)
	}
	defer tx.Rollback()

	current, err := scanPeriod(tx.QueryRowContext(ctx,
		`SELECT key, incomes, expenses, comment FROM periods WHERE key = ?`, p.Key))
	if errors.Is(err, sql.ErrNoRows) {
		return core.UpdateNotFound, nil
	}
	if err != nil {
		return core.UpdateNotFound, err
	}
	if current.Equal(p) {
		return core.UpdateUnchanged, nil
	}

	incomes, expenses, err := encodeAmounts(p)
	if err != nil {
		return core.UpdateNotFound, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE periods SET incomes = ?, expenses = ?, comment = ?, updated_at = ? WHERE key = ?`,
		incomes, expenses, p.Comment, r.now().UTC(), p.Key)
	if err != nil {
		return core.UpdateNotFound, Unavailable("update period", err)
	}
	if err := tx.Commit(); err != nil {
		return core.UpdateNotFound, Unavailable("commit update", err)
	}

	slog.InfoContext(ctx, "Period updated in SQLite", "period_key", p.Key)
	return core.UpdateChanged, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (core.Period, error) {
	var (
		p                 core.Period
		incomes, expenses string
	)
	if err := row.Scan(&p.Key, &incomes, &expenses, &p.Comment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, Unavailable("scan period", err)
	}
	if err := json.Unmarshal([]byte(incomes), &p.Incomes); err != nil {
		return p, fmt.Errorf("decode incomes for %s: %w", p.Key, err)
	}
	if err := json.Unmarshal([]byte(expenses), &p.Expenses); err != nil {
		return p, fmt.Errorf("decode expenses for %s: %w", p.Key, err)
	}
	return p, nil
}

func encodeAmounts(p core.Period) (string, string, error) {
	incomes, err := json.Marshal(p.Incomes.Clone())
	if err != nil {
		return "", "", fmt.Errorf("encode incomes: %w", err)
	}
	expenses, err := json.Marshal(p.Expenses.Clone())
	if err != nil {
		return "", "", fmt.Errorf("encode expenses: %w", err)
	}
	return string(incomes), string(expenses), nil
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
