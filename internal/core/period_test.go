package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewAndParsePeriodKey(t *testing.T) {
	key := NewPeriodKey(2024, time.January)
	if key != "2024_January" {
		t.Fatalf("NewPeriodKey = %q", key)
	}
	year, month, err := ParsePeriodKey(key)
	if err != nil || year != 2024 || month != time.January {
		t.Fatalf("ParsePeriodKey(%q) = %d %v %v", key, year, month, err)
	}
}

func TestParsePeriodKeyInvalid(t *testing.T) {
	for _, key := range []string{"", "2024", "2024-January", "abcd_January", "2024_Janvier", "0_March", "2024_january"} {
		if _, _, err := ParsePeriodKey(key); !errors.Is(err, ErrInvalidPeriodKey) {
			t.Errorf("ParsePeriodKey(%q) err = %v, want ErrInvalidPeriodKey", key, err)
		}
	}
}

func TestPeriodChoices(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	got := PeriodChoices(now)
	if len(got) != 24 {
		t.Fatalf("len = %d, want 24", len(got))
	}
	if got[0] != "2025_January" || got[11] != "2025_December" || got[12] != "2026_January" || got[23] != "2026_December" {
		t.Fatalf("unexpected choices: %v", got)
	}
}

func TestSortChronologically(t *testing.T) {
	periods := []Period{
		{Key: "2025_March"},
		{Key: "garbage"},
		{Key: "2024_December"},
		{Key: "2025_January"},
		{Key: "2024_February"},
	}
	SortChronologically(periods)
	want := []string{"2024_February", "2024_December", "2025_January", "2025_March", "garbage"}
	got := Keys(periods)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestPeriodEqualAndClone(t *testing.T) {
	p := Period{
		Key:      "2024_May",
		Incomes:  Amounts{"Salary": 1000},
		Expenses: Amounts{"Rent": 400},
		Comment:  "spring",
	}
	c := p.Clone()
	if !p.Equal(c) {
		t.Fatal("clone should equal original")
	}
	c.Incomes["Salary"] = 900
	if p.Incomes["Salary"] != 1000 {
		t.Fatal("clone shares the incomes map")
	}
	if p.Equal(c) {
		t.Fatal("modified clone should differ")
	}

	if !(Period{Key: "k"}).Equal(Period{Key: "k", Incomes: Amounts{}, Expenses: Amounts{}}) {
		t.Fatal("nil and empty maps should compare equal")
	}
	if (Period{Key: "k", Incomes: Amounts{"Car": 0}}).Equal(Period{Key: "k"}) {
		t.Fatal("an explicit zero category is a difference")
	}
	if (Period{Key: "k", Comment: "a"}).Equal(Period{Key: "k", Comment: "b"}) {
		t.Fatal("comments differ")
	}
}

func TestUpdateResultMessages(t *testing.T) {
	cases := map[UpdateResult]string{
		UpdateChanged:   "Data updated successfully",
		UpdateUnchanged: "No changes made to the data",
		UpdateNotFound:  "No matching document found for update",
	}
	for r, msg := range cases {
		if r.Message() != msg {
			t.Errorf("%s.Message() = %q, want %q", r, r.Message(), msg)
		}
	}
}
