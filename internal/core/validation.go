package core

import (
	"fmt"
	"slices"
)

// ValidateBudget accepts the entries when income covers expenses. Totals that
// do not fit in an int64 are rejected with ErrAmountTooLarge.
func ValidateBudget(incomes, expenses Amounts) error {
	in, err := incomes.CheckedSum()
	if err != nil {
		return fmt.Errorf("incomes: %w", err)
	}
	out, err := expenses.CheckedSum()
	if err != nil {
		return fmt.Errorf("expenses: %w", err)
	}
	if in < out {
		return ErrInsufficientIncome
	}
	return nil
}

// IsDuplicatePeriod reports whether key is already among existingKeys.
func IsDuplicatePeriod(key string, existingKeys []string) bool {
	return slices.Contains(existingKeys, key)
}
