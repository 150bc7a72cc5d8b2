package memory

import (
	"context"
	"sync"

	"budget/internal/core"
	"budget/internal/sheets"
)

var _ sheets.SummaryWriter = (*SummaryStore)(nil)

// SummaryStore keeps exported summaries in process, keyed by period.
type SummaryStore struct {
	mu    sync.Mutex
	rows  map[string]core.PeriodSummary
	order []string
	calls int
}

func NewSummaryStore() *SummaryStore {
	return &SummaryStore{rows: make(map[string]core.PeriodSummary)}
}

// UpsertSummary stores the summary. New keys keep their insertion position.
func (s *SummaryStore) UpsertSummary(ctx context.Context, sum core.PeriodSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.rows[sum.Key]; !ok {
		s.order = append(s.order, sum.Key)
	}
	s.rows[sum.Key] = sum
	return nil
}

// Get returns the stored summary for key.
func (s *SummaryStore) Get(key string) (core.PeriodSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.rows[key]
	return sum, ok
}

// Rows returns the stored summaries in insertion order.
func (s *SummaryStore) Rows() []core.PeriodSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PeriodSummary, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.rows[k])
	}
	return out
}

// Calls reports how many upserts were received.
func (s *SummaryStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
