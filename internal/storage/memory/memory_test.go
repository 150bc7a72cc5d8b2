package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"budget/internal/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := core.Period{
		Key:      "2024_January",
		Incomes:  core.Amounts{"Salary": 100},
		Expenses: core.Amounts{"Rent": 60},
	}
	if err := s.InsertPeriod(ctx, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertPeriod(ctx, p); !errors.Is(err, core.ErrDuplicateKey) {
		t.Fatalf("second insert err = %v, want ErrDuplicateKey", err)
	}

	got, err := s.GetPeriod(ctx, p.Key)
	if err != nil || got == nil || !got.Equal(p) {
		t.Fatalf("get = %+v, %v", got, err)
	}

	// Mutating the returned copy must not leak into the store.
	got.Incomes["Salary"] = 1
	again, _ := s.GetPeriod(ctx, p.Key)
	if again.Incomes["Salary"] != 100 {
		t.Fatal("store returned a shared map")
	}

	if res, _ := s.UpdatePeriod(ctx, p); res != core.UpdateUnchanged {
		t.Fatalf("identical update = %s", res)
	}
	p.Comment = "note"
	if res, _ := s.UpdatePeriod(ctx, p); res != core.UpdateChanged {
		t.Fatalf("changed update = %s", res)
	}
	if res, _ := s.UpdatePeriod(ctx, core.Period{Key: "2024_July"}); res != core.UpdateNotFound {
		t.Fatalf("missing update = %s", res)
	}

	if missing, err := s.GetPeriod(ctx, "1999_May"); missing != nil || err != nil {
		t.Fatalf("missing get = %+v, %v", missing, err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("absent file: %v", err)
	}
	if list, _ := s.ListPeriods(context.Background()); len(list) != 0 {
		t.Fatalf("expected empty store, got %d", len(list))
	}

	path := filepath.Join(dir, "seed.json")
	body := `[{"key":"2024_May","incomes":{"Salary":10},"expenses":{"Rent":4},"comment":"seed"}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	got, _ := s.GetPeriod(context.Background(), "2024_May")
	if got == nil || got.Comment != "seed" || got.Expenses["Rent"] != 4 {
		t.Fatalf("seeded period = %+v", got)
	}

	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatal("expected decode error")
	}
}
