// Package memory is an in-process period store used for tests and local runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"budget/internal/core"
	"budget/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	periods map[string]core.Period
}

var _ storage.PeriodStore = (*Store)(nil)

func New(seed ...core.Period) *Store {
	s := &Store{periods: make(map[string]core.Period, len(seed))}
	for _, p := range seed {
		s.periods[p.Key] = p.Clone()
	}
	return s
}

// seedRecord mirrors the persisted document shape.
type seedRecord struct {
	Key      string       `json:"key"`
	Incomes  core.Amounts `json:"incomes"`
	Expenses core.Amounts `json:"expenses"`
	Comment  string       `json:"comment"`
}

// NewFromFile seeds the store from a JSON array of period documents. A missing
// file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var records []seedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	seed := make([]core.Period, 0, len(records))
	for _, r := range records {
		seed = append(seed, core.Period{Key: r.Key, Incomes: r.Incomes, Expenses: r.Expenses, Comment: r.Comment})
	}
	return New(seed...), nil
}

func (s *Store) ListPeriods(_ context.Context) ([]core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Period, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (s *Store) GetPeriod(_ context.Context, key string) (*core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[key]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

func (s *Store) InsertPeriod(_ context.Context, p core.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periods[p.Key]; ok {
		return fmt.Errorf("insert period %s: %w", p.Key, core.ErrDuplicateKey)
	}
	s.periods[p.Key] = p.Clone()
	return nil
}

func (s *Store) UpdatePeriod(_ context.Context, p core.Period) (core.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.periods[p.Key]
	if !ok {
		return core.UpdateNotFound, nil
	}
	if current.Equal(p) {
		return core.UpdateUnchanged, nil
	}
	s.periods[p.Key] = p.Clone()
	return core.UpdateChanged, nil
}
