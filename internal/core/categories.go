package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Categories is the configured set of income and expense buckets. Order is
// significant: it drives form layout and Sankey node positions.
type Categories struct {
	Incomes  []string
	Expenses []string
	Currency string
}

// DefaultCategories returns the stock category configuration.
func DefaultCategories() Categories {
	return Categories{
		Incomes:  []string{"Salary", "Other Income"},
		Expenses: []string{"Rent", "Utilities", "Groceries", "Car", "Other Expenses", "Saving"},
		Currency: "USD",
	}
}

// Validate checks the configuration itself.
func (c Categories) Validate() error {
	var errs []error
	if len(c.Incomes) == 0 {
		errs = append(errs, errors.New("at least one income category is required"))
	}
	if len(c.Expenses) == 0 {
		errs = append(errs, errors.New("at least one expense category is required"))
	}
	if strings.TrimSpace(c.Currency) == "" {
		errs = append(errs, errors.New("currency label is required"))
	}

	seen := make(map[string]string)
	check := func(kind string, names []string) {
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				errs = append(errs, fmt.Errorf("blank %s category", kind))
				continue
			}
			if prev, ok := seen[name]; ok {
				errs = append(errs, fmt.Errorf("category %q listed as both %s and %s", name, prev, kind))
				continue
			}
			seen[name] = kind
		}
	}
	check("income", c.Incomes)
	check("expense", c.Expenses)

	return errors.Join(errs...)
}

// CheckPeriod verifies the key format, that every category is configured and
// that every amount lies in [0, MaxAmount]. It does not apply the budget rule.
func (c Categories) CheckPeriod(p Period) error {
	if _, _, err := ParsePeriodKey(p.Key); err != nil {
		return err
	}
	if err := checkAmounts("income", p.Incomes, c.Incomes); err != nil {
		return err
	}
	return checkAmounts("expense", p.Expenses, c.Expenses)
}

func checkAmounts(kind string, amounts Amounts, allowed []string) error {
	for name, v := range amounts {
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("%w: %s category %q", ErrUnknownCategory, kind, name)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s category %q", ErrNegativeAmount, kind, name)
		}
		if v > MaxAmount {
			return fmt.Errorf("%w: %s category %q exceeds %d", ErrAmountTooLarge, kind, name, MaxAmount)
		}
	}
	return nil
}
