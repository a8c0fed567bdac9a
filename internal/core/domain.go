package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type (
	// Category is a user-defined label used to bucket expenses and to
	// attach a monthly budget ceiling. Categories are soft-deleted via
	// the Active flag and never removed from storage.
	Category struct {
		ID     int64
		Name   string
		Active bool
	}

	// Income is a single income entry for a (user, month).
	Income struct {
		ID     int64
		Month  string
		Source string
		Amount float64
	}

	// Expense is a single expense entry. Category carries the label
	// resolved from the categories table at read time.
	Expense struct {
		ID          int64
		Date        time.Time
		CategoryID  int64
		Category    string
		Description string
		Amount      float64
		Month       string
	}

	// Budget is the ceiling for a (user, month, category) key. At most
	// one budget row exists per key.
	Budget struct {
		ID         int64
		Month      string
		CategoryID int64
		Category   string
		Amount     float64
	}

	// History is a user's full, unfiltered ledger, used for analytics
	// and export.
	History struct {
		Incomes  []Income
		Expenses []Expense
		Budgets  []Budget
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrEmptyName        = errors.New("empty category name")
	ErrEmptySource      = errors.New("empty income source")
	ErrEmptyDescription = errors.New("empty description")
)

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidateMonth checks that s is a year-month key like "2025-03".
func ValidateMonth(s string) error {
	if !monthRe.MatchString(s) {
		return ErrInvalidMonth
	}
	return nil
}

// MonthOf derives the month key from a date.
func MonthOf(d time.Time) string {
	return d.Format("2006-01")
}

// NewIncome is the validated input for creating an income entry.
type NewIncome struct {
	Month  string
	Source string
	Amount float64
}

func (in NewIncome) Validate() error {
	if err := ValidateMonth(in.Month); err != nil {
		return err
	}
	if strings.TrimSpace(in.Source) == "" {
		return ErrEmptySource
	}
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewExpense is the validated input for creating an expense entry.
// The month key is derived from Date by the storage layer, never
// supplied by the caller.
type NewExpense struct {
	Date        time.Time
	CategoryID  int64
	Description string
	Amount      float64
}

func (in NewExpense) Validate() error {
	if in.Date.IsZero() {
		return ErrInvalidDate
	}
	if in.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if len(in.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewBudget is the validated input for setting a budget ceiling.
type NewBudget struct {
	Month      string
	CategoryID int64
	Amount     float64
}

func (in NewBudget) Validate() error {
	if err := ValidateMonth(in.Month); err != nil {
		return err
	}
	if in.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateCategoryName checks a category name supplied at the boundary.
func ValidateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return errors.New("category name too long (max 100 characters)")
	}
	return nil
}
