package core

import (
	"sort"
	"strconv"
	"strings"
)

const (
	// AggregatorLabel names the synthetic middle node of the Sankey diagram.
	AggregatorLabel = "Total Income"

	IncomeNodeColor     = "#1f77b4"
	AggregatorNodeColor = "#ff7f0e"
	ExpenseNodeColor    = "#d62728"

	sankeyPad       = 20
	sankeyThickness = 30
)

type (
	// Totals are the three dashboard metrics of a period.
	Totals struct {
		Income    int64
		Expense   int64
		Remaining int64
	}

	SankeyNode struct {
		Label string
		Color string
	}

	// SankeyLink points at nodes by their index in Sankey.Nodes.
	SankeyLink struct {
		Source int
		Target int
		Value  int64
	}

	Sankey struct {
		Nodes     []SankeyNode
		Links     []SankeyLink
		Pad       int
		Thickness int
	}

	TrendPoint struct {
		Key          string
		TotalIncome  int64
		TotalExpense int64
	}
)

func ComputeTotals(p Period) Totals {
	income := p.Incomes.Sum()
	expense := p.Expenses.Sum()
	return Totals{
		Income:    income,
		Expense:   expense,
		Remaining: income - expense,
	}
}

// BuildSankey lays out income nodes, the aggregator, then expense nodes, each
// group in configured order. Categories missing from the period still get a
// node and a zero link so indices stay stable across periods.
func BuildSankey(p Period, cats Categories) Sankey {
	incomes := orderedNames(cats.Incomes, p.Incomes)
	expenses := orderedNames(cats.Expenses, p.Expenses)

	s := Sankey{
		Nodes:     make([]SankeyNode, 0, len(incomes)+1+len(expenses)),
		Links:     make([]SankeyLink, 0, len(incomes)+len(expenses)),
		Pad:       sankeyPad,
		Thickness: sankeyThickness,
	}

	for _, name := range incomes {
		s.Nodes = append(s.Nodes, SankeyNode{Label: name, Color: IncomeNodeColor})
	}
	hub := len(s.Nodes)
	s.Nodes = append(s.Nodes, SankeyNode{Label: AggregatorLabel, Color: AggregatorNodeColor})
	for _, name := range expenses {
		s.Nodes = append(s.Nodes, SankeyNode{Label: name, Color: ExpenseNodeColor})
	}

	for i, name := range incomes {
		s.Links = append(s.Links, SankeyLink{Source: i, Target: hub, Value: p.Incomes[name]})
	}
	for i, name := range expenses {
		s.Links = append(s.Links, SankeyLink{Source: hub, Target: hub + 1 + i, Value: p.Expenses[name]})
	}
	return s
}

// orderedNames returns the configured names followed by any extra names
// present in amounts, the extras sorted.
func orderedNames(configured []string, amounts Amounts) []string {
	names := append([]string(nil), configured...)
	known := make(map[string]struct{}, len(configured))
	for _, n := range configured {
		known[n] = struct{}{}
	}
	var extra []string
	for n := range amounts {
		if _, ok := known[n]; !ok {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// BuildTrendSeries emits one point per period in the order given.
func BuildTrendSeries(periods []Period) []TrendPoint {
	points := make([]TrendPoint, 0, len(periods))
	for _, p := range periods {
		t := ComputeTotals(p)
		points = append(points, TrendPoint{
			Key:          p.Key,
			TotalIncome:  t.Income,
			TotalExpense: t.Expense,
		})
	}
	return points
}

// FormatAmount renders whole units with thousands separators followed by the
// currency label, e.g. "1,250 USD".
func FormatAmount(amount int64, currency string) string {
	digits := strconv.FormatInt(amount, 10)
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	if currency != "" {
		b.WriteByte(' ')
		b.WriteString(currency)
	}
	return b.String()
}
