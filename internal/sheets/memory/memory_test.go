package memory

import (
	"context"
	"testing"

	"budget/internal/core"
)

func TestSummaryStore_Upsert(t *testing.T) {
	s := NewSummaryStore()
	ctx := context.Background()

	if err := s.UpsertSummary(ctx, core.PeriodSummary{Key: "2024_January", TotalIncome: 100}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertSummary(ctx, core.PeriodSummary{Key: "2024_February", TotalIncome: 50}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertSummary(ctx, core.PeriodSummary{Key: "2024_January", TotalIncome: 200}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Key != "2024_January" || rows[0].TotalIncome != 200 {
		t.Errorf("first row = %+v, want replaced 2024_January", rows[0])
	}
	if s.Calls() != 3 {
		t.Errorf("calls = %d, want 3", s.Calls())
	}
	if _, ok := s.Get("2023_December"); ok {
		t.Error("unexpected row for 2023_December")
	}
}

func TestSummaryStore_CanceledContext(t *testing.T) {
	s := NewSummaryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.UpsertSummary(ctx, core.PeriodSummary{Key: "2024_January"}); err == nil {
		t.Fatal("expected error on canceled context")
	}
	if len(s.Rows()) != 0 {
		t.Error("nothing should be stored")
	}
}
