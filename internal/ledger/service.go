// Package ledger is the user-scoped access layer over the persistence
// store. It adds read-through caching per (operation, user, arguments)
// key and purges every cached read for a user immediately after any of
// that user's writes, so a stale view is never served.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
)

// Store is the persistence surface the ledger needs. *storage.Store
// satisfies it.
type Store interface {
	GetOrCreateUser(ctx context.Context, username string) (int64, error)
	SeedDefaultCategories(ctx context.Context, userID int64) error

	ListCategories(ctx context.Context, userID int64, activeOnly bool) ([]core.Category, error)
	AddCategory(ctx context.Context, userID int64, name string) error
	RenameCategory(ctx context.Context, userID, id int64, newName string) error
	ToggleCategory(ctx context.Context, userID, id int64, active bool) error

	ListIncomes(ctx context.Context, userID int64, month string) ([]core.Income, error)
	AddIncome(ctx context.Context, userID int64, in core.NewIncome) (int64, error)
	DeleteIncome(ctx context.Context, userID, id int64) error

	ListExpenses(ctx context.Context, userID int64, month string) ([]core.Expense, error)
	AddExpense(ctx context.Context, userID int64, in core.NewExpense) (int64, error)
	DeleteExpense(ctx context.Context, userID, id int64) error

	ListBudgets(ctx context.Context, userID int64, month string) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, userID int64, in core.NewBudget) error

	AllData(ctx context.Context, userID int64) (core.History, error)
}

// Service exposes the ledger operations of one store with caching.
type Service struct {
	store  Store
	logger *log.Logger

	categories *cache.LRU[[]core.Category]
	incomes    *cache.LRU[[]core.Income]
	expenses   *cache.LRU[[]core.Expense]
	budgets    *cache.LRU[[]core.Budget]
	history    *cache.LRU[core.History]
}

// Config bounds the read caches.
type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{
		CacheSize: 256,
		CacheTTL:  5 * time.Minute,
	}
}

func NewService(store Store, cfg Config) *Service {
	if cfg.CacheSize <= 0 || cfg.CacheTTL <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		store:      store,
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
		categories: cache.NewLRU[[]core.Category](cfg.CacheSize, cfg.CacheTTL),
		incomes:    cache.NewLRU[[]core.Income](cfg.CacheSize, cfg.CacheTTL),
		expenses:   cache.NewLRU[[]core.Expense](cfg.CacheSize, cfg.CacheTTL),
		budgets:    cache.NewLRU[[]core.Budget](cfg.CacheSize, cfg.CacheTTL),
		history:    cache.NewLRU[core.History](cfg.CacheSize, cfg.CacheTTL),
	}
}

// RegisterCaches adds the service's caches to a janitor.
func (s *Service) RegisterCaches(j *cache.Janitor) {
	j.Register(s.categories)
	j.Register(s.incomes)
	j.Register(s.expenses)
	j.Register(s.budgets)
	j.Register(s.history)
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("u%d:", userID)
}

// invalidate drops every cached read for the user. Called after every
// write; correctness requires purging, not waiting for TTL.
func (s *Service) invalidate(ctx context.Context, userID int64) {
	prefix := userPrefix(userID)
	s.categories.PurgePrefix(prefix)
	s.incomes.PurgePrefix(prefix)
	s.expenses.PurgePrefix(prefix)
	s.budgets.PurgePrefix(prefix)
	s.history.PurgePrefix(prefix)
	s.logger.Debug("Ledger cache invalidated", log.FieldUserID, userID)
}

// ResolveUser maps an authenticated username to its user id, creating
// the user and seeding the default categories on first access.
func (s *Service) ResolveUser(ctx context.Context, username string) (int64, error) {
	id, err := s.store.GetOrCreateUser(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("resolve user: %w", err)
	}
	if err := s.store.SeedDefaultCategories(ctx, id); err != nil {
		return 0, fmt.Errorf("seed default categories: %w", err)
	}
	return id, nil
}

func (s *Service) ListCategories(ctx context.Context, userID int64, activeOnly bool) ([]core.Category, error) {
	key := fmt.Sprintf("u%d:categories:%t", userID, activeOnly)
	if cats, ok := s.categories.Get(key); ok {
		return cats, nil
	}
	cats, err := s.store.ListCategories(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	s.categories.Set(key, cats)
	return cats, nil
}

// AddCategory creates a category. The name is trimmed before storage so
// "Loisirs" and "Loisirs " cannot coexist as distinct categories.
func (s *Service) AddCategory(ctx context.Context, userID int64, name string) error {
	if err := core.ValidateCategoryName(name); err != nil {
		return err
	}
	if err := s.store.AddCategory(ctx, userID, strings.TrimSpace(name)); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) RenameCategory(ctx context.Context, userID, id int64, newName string) error {
	if err := core.ValidateCategoryName(newName); err != nil {
		return err
	}
	if err := s.store.RenameCategory(ctx, userID, id, strings.TrimSpace(newName)); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) ToggleCategory(ctx context.Context, userID, id int64, active bool) error {
	if err := s.store.ToggleCategory(ctx, userID, id, active); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) ListIncomes(ctx context.Context, userID int64, month string) ([]core.Income, error) {
	key := fmt.Sprintf("u%d:incomes:%s", userID, month)
	if incomes, ok := s.incomes.Get(key); ok {
		return incomes, nil
	}
	incomes, err := s.store.ListIncomes(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	s.incomes.Set(key, incomes)
	return incomes, nil
}

func (s *Service) AddIncome(ctx context.Context, userID int64, in core.NewIncome) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.AddIncome(ctx, userID, in)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, userID)
	return id, nil
}

func (s *Service) DeleteIncome(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteIncome(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) ListExpenses(ctx context.Context, userID int64, month string) ([]core.Expense, error) {
	key := fmt.Sprintf("u%d:expenses:%s", userID, month)
	if expenses, ok := s.expenses.Get(key); ok {
		return expenses, nil
	}
	expenses, err := s.store.ListExpenses(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	s.expenses.Set(key, expenses)
	return expenses, nil
}

func (s *Service) AddExpense(ctx context.Context, userID int64, in core.NewExpense) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.AddExpense(ctx, userID, in)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, userID)
	return id, nil
}

func (s *Service) DeleteExpense(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) ListBudgets(ctx context.Context, userID int64, month string) ([]core.Budget, error) {
	key := fmt.Sprintf("u%d:budgets:%s", userID, month)
	if budgets, ok := s.budgets.Get(key); ok {
		return budgets, nil
	}
	budgets, err := s.store.ListBudgets(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	s.budgets.Set(key, budgets)
	return budgets, nil
}

func (s *Service) UpsertBudget(ctx context.Context, userID int64, in core.NewBudget) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertBudget(ctx, userID, in); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) AllData(ctx context.Context, userID int64) (core.History, error) {
	key := fmt.Sprintf("u%d:history", userID)
	if all, ok := s.history.Get(key); ok {
		return all, nil
	}
	all, err := s.store.AllData(ctx, userID)
	if err != nil {
		return core.History{}, err
	}
	s.history.Set(key, all)
	return all, nil
}

// Summary builds the month's budget-vs-actual report from fresh ledger
// snapshots.
func (s *Service) Summary(ctx context.Context, userID int64, month string) (core.Summary, error) {
	incomes, err := s.ListIncomes(ctx, userID, month)
	if err != nil {
		return core.Summary{}, err
	}
	expenses, err := s.ListExpenses(ctx, userID, month)
	if err != nil {
		return core.Summary{}, err
	}
	budgets, err := s.ListBudgets(ctx, userID, month)
	if err != nil {
		return core.Summary{}, err
	}
	return core.MonthlySummary(incomes, expenses, budgets), nil
}

// Trend computes per-month income and expense totals for the given
// months, in that order.
func (s *Service) Trend(ctx context.Context, userID int64, months []string) ([]core.TrendPoint, error) {
	incomeByMonth := make(map[string]float64, len(months))
	expenseByMonth := make(map[string]float64, len(months))
	for _, m := range months {
		incomes, err := s.ListIncomes(ctx, userID, m)
		if err != nil {
			return nil, err
		}
		for _, in := range incomes {
			incomeByMonth[m] += in.Amount
		}
		expenses, err := s.ListExpenses(ctx, userID, m)
		if err != nil {
			return nil, err
		}
		for _, e := range expenses {
			expenseByMonth[m] += e.Amount
		}
	}
	return core.TrendSeries(months, incomeByMonth, expenseByMonth), nil
}

// Breakdown groups the month's expenses by category label.
func (s *Service) Breakdown(ctx context.Context, userID int64, month string) (map[string]float64, error) {
	expenses, err := s.ListExpenses(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	return core.CategoryBreakdown(expenses), nil
}
