package core

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type (
	// Amounts maps a category name to a whole-unit amount.
	Amounts map[string]int64

	// Period is the budget record for one calendar month.
	Period struct {
		Key      string
		Incomes  Amounts
		Expenses Amounts
		Comment  string
	}

	// PeriodSummary is the flattened view of a period used for exports.
	PeriodSummary struct {
		Key          string
		TotalIncome  int64
		TotalExpense int64
		Remaining    int64
		Comment      string
	}
)

var (
	ErrInsufficientIncome = errors.New("insufficient income")
	ErrDuplicateKey       = errors.New("period already exists")
	ErrNotFound           = errors.New("period not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidPeriodKey   = errors.New("invalid period key")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrNegativeAmount     = errors.New("negative amount")
	ErrAmountTooLarge     = errors.New("amount too large")
)

// MaxAmount is the largest amount accepted for a single category.
const MaxAmount int64 = 1_000_000_000_000

// NewPeriodKey formats a key such as "2024_January".
func NewPeriodKey(year int, month time.Month) string {
	return strconv.Itoa(year) + "_" + month.String()
}

// ParsePeriodKey is the inverse of NewPeriodKey.
func ParsePeriodKey(key string) (int, time.Month, error) {
	yearPart, monthPart, ok := strings.Cut(key, "_")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}
	for m := time.January; m <= time.December; m++ {
		if m.String() == monthPart {
			return year, m, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
}

// PeriodChoices lists the keys offered when creating a period: every month of
// the current year followed by every month of the next one.
func PeriodChoices(now time.Time) []string {
	keys := make([]string, 0, 24)
	for _, year := range []int{now.Year(), now.Year() + 1} {
		for m := time.January; m <= time.December; m++ {
			keys = append(keys, NewPeriodKey(year, m))
		}
	}
	return keys
}

// SortChronologically orders periods by year and month in place. Keys that do
// not parse are placed last, ordered by string.
func SortChronologically(periods []Period) {
	sort.SliceStable(periods, func(i, j int) bool {
		return periodKeyLess(periods[i].Key, periods[j].Key)
	})
}

func periodKeyLess(a, b string) bool {
	ay, am, aerr := ParsePeriodKey(a)
	by, bm, berr := ParsePeriodKey(b)
	switch {
	case aerr != nil && berr != nil:
		return a < b
	case aerr != nil:
		return false
	case berr != nil:
		return true
	case ay != by:
		return ay < by
	default:
		return am < bm
	}
}

// Sum adds every amount in the map, clamping at the int64 limits instead of
// wrapping.
func (a Amounts) Sum() int64 {
	var total int64
	for _, v := range a {
		next, ok := addAmount(total, v)
		if !ok {
			if v > 0 {
				return math.MaxInt64
			}
			return math.MinInt64
		}
		total = next
	}
	return total
}

// CheckedSum is Sum that reports ErrAmountTooLarge instead of clamping.
func (a Amounts) CheckedSum() (int64, error) {
	var total int64
	for name, v := range a {
		next, ok := addAmount(total, v)
		if !ok {
			return 0, fmt.Errorf("%w: total overflows at %q", ErrAmountTooLarge, name)
		}
		total = next
	}
	return total, nil
}

func addAmount(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// Clone returns an independent copy. A nil map clones to an empty map.
func (a Amounts) Clone() Amounts {
	out := make(Amounts, len(a))
	maps.Copy(out, a)
	return out
}

// Equal compares category by category. A nil map equals an empty one.
func (a Amounts) Equal(b Amounts) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Clone deep-copies the period.
func (p Period) Clone() Period {
	return Period{
		Key:      p.Key,
		Incomes:  p.Incomes.Clone(),
		Expenses: p.Expenses.Clone(),
		Comment:  p.Comment,
	}
}

// Equal reports whether both periods carry the same key and values.
func (p Period) Equal(o Period) bool {
	return p.Key == o.Key &&
		p.Comment == o.Comment &&
		p.Incomes.Equal(o.Incomes) &&
		p.Expenses.Equal(o.Expenses)
}

// Summary flattens the period into its totals.
func (p Period) Summary() PeriodSummary {
	t := ComputeTotals(p)
	return PeriodSummary{
		Key:          p.Key,
		TotalIncome:  t.Income,
		TotalExpense: t.Expense,
		Remaining:    t.Remaining,
		Comment:      p.Comment,
	}
}

// Keys returns the key of each period, in input order.
func Keys(periods []Period) []string {
	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = p.Key
	}
	return keys
}
