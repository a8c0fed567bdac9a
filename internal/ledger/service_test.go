package ledger

import (
	"context"
	"testing"
	"time"

	"budget/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore counts calls so tests can observe cache hits and misses.
type fakeStore struct {
	listIncomeCalls  int
	listExpenseCalls int
	listBudgetCalls  int
	addIncomeCalls   int

	addedNames []string
	renamedTo  string

	incomes  []core.Income
	expenses []core.Expense
	budgets  []core.Budget
}

func (f *fakeStore) GetOrCreateUser(ctx context.Context, username string) (int64, error) {
	return 1, nil
}
func (f *fakeStore) SeedDefaultCategories(ctx context.Context, userID int64) error { return nil }
func (f *fakeStore) ListCategories(ctx context.Context, userID int64, activeOnly bool) ([]core.Category, error) {
	return nil, nil
}
func (f *fakeStore) AddCategory(ctx context.Context, userID int64, name string) error {
	f.addedNames = append(f.addedNames, name)
	return nil
}
func (f *fakeStore) RenameCategory(ctx context.Context, userID, id int64, newName string) error {
	f.renamedTo = newName
	return nil
}
func (f *fakeStore) ToggleCategory(ctx context.Context, userID, id int64, active bool) error {
	return nil
}
func (f *fakeStore) ListIncomes(ctx context.Context, userID int64, month string) ([]core.Income, error) {
	f.listIncomeCalls++
	return f.incomes, nil
}
func (f *fakeStore) AddIncome(ctx context.Context, userID int64, in core.NewIncome) (int64, error) {
	f.addIncomeCalls++
	return 1, nil
}
func (f *fakeStore) DeleteIncome(ctx context.Context, userID, id int64) error { return nil }
func (f *fakeStore) ListExpenses(ctx context.Context, userID int64, month string) ([]core.Expense, error) {
	f.listExpenseCalls++
	return f.expenses, nil
}
func (f *fakeStore) AddExpense(ctx context.Context, userID int64, in core.NewExpense) (int64, error) {
	return 1, nil
}
func (f *fakeStore) DeleteExpense(ctx context.Context, userID, id int64) error { return nil }
func (f *fakeStore) ListBudgets(ctx context.Context, userID int64, month string) ([]core.Budget, error) {
	f.listBudgetCalls++
	return f.budgets, nil
}
func (f *fakeStore) UpsertBudget(ctx context.Context, userID int64, in core.NewBudget) error {
	return nil
}
func (f *fakeStore) AllData(ctx context.Context, userID int64) (core.History, error) {
	return core.History{}, nil
}

func TestReadThroughCaching(t *testing.T) {
	fake := &fakeStore{incomes: []core.Income{{ID: 1, Amount: 100}}}
	svc := NewService(fake, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		incomes, err := svc.ListIncomes(ctx, 1, "2025-01")
		require.NoError(t, err)
		require.Len(t, incomes, 1)
	}
	assert.Equal(t, 1, fake.listIncomeCalls, "repeated reads must hit the cache")
}

func TestWriteInvalidatesReads(t *testing.T) {
	fake := &fakeStore{incomes: []core.Income{{ID: 1, Amount: 100}}}
	svc := NewService(fake, DefaultConfig())
	ctx := context.Background()

	_, err := svc.ListIncomes(ctx, 1, "2025-01")
	require.NoError(t, err)
	require.Equal(t, 1, fake.listIncomeCalls)

	_, err = svc.AddIncome(ctx, 1, core.NewIncome{Month: "2025-01", Source: "Salaire", Amount: 50})
	require.NoError(t, err)

	_, err = svc.ListIncomes(ctx, 1, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.listIncomeCalls, "write must purge the cached read")
}

func TestWriteByOtherUserKeepsCache(t *testing.T) {
	fake := &fakeStore{}
	svc := NewService(fake, DefaultConfig())
	ctx := context.Background()

	_, err := svc.ListIncomes(ctx, 1, "2025-01")
	require.NoError(t, err)
	require.Equal(t, 1, fake.listIncomeCalls)

	_, err = svc.AddIncome(ctx, 2, core.NewIncome{Month: "2025-01", Source: "Salaire", Amount: 50})
	require.NoError(t, err)

	_, err = svc.ListIncomes(ctx, 1, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.listIncomeCalls, "another user's write must not purge this user's cache")
}

func TestInvalidWriteNotAttempted(t *testing.T) {
	fake := &fakeStore{}
	svc := NewService(fake, DefaultConfig())
	ctx := context.Background()

	_, err := svc.AddIncome(ctx, 1, core.NewIncome{Month: "2025-01", Source: "", Amount: 50})
	assert.ErrorIs(t, err, core.ErrEmptySource)
	_, err = svc.AddIncome(ctx, 1, core.NewIncome{Month: "2025-01", Source: "Salaire", Amount: -1})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Zero(t, fake.addIncomeCalls, "invalid input must never reach the store")

	err = svc.UpsertBudget(ctx, 1, core.NewBudget{Month: "bad", CategoryID: 1, Amount: 10})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	_, err = svc.AddExpense(ctx, 1, core.NewExpense{CategoryID: 1, Amount: 5})
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestSummaryFromSnapshots(t *testing.T) {
	fake := &fakeStore{
		incomes: []core.Income{{Source: "Salaire", Amount: 2000}},
		expenses: []core.Expense{
			{Category: "Alimentation", Amount: 30},
			{Category: "Alimentation", Amount: 45},
		},
		budgets: []core.Budget{{Category: "Alimentation", Amount: 200}},
	}
	svc := NewService(fake, DefaultConfig())

	s, err := svc.Summary(context.Background(), 1, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, s.TotalIncome)
	assert.Equal(t, 75.0, s.TotalSpent)
	assert.Equal(t, 1925.0, s.OverallLeft)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, 37.5, s.Rows[0].PercentUsed)
}

func TestCategoryNameTrimmedBeforeStorage(t *testing.T) {
	fake := &fakeStore{}
	svc := NewService(fake, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, svc.AddCategory(ctx, 1, "  Loisirs "))
	require.Equal(t, []string{"Loisirs"}, fake.addedNames,
		"padded name must reach the store trimmed, so it cannot coexist with the bare one")

	require.NoError(t, svc.RenameCategory(ctx, 1, 1, " Vacances  "))
	assert.Equal(t, "Vacances", fake.renamedTo)
}

func TestTrendUsesMonthOrder(t *testing.T) {
	fake := &fakeStore{
		incomes:  []core.Income{{Amount: 10}},
		expenses: []core.Expense{{Category: "A", Amount: 4}},
	}
	svc := NewService(fake, Config{CacheSize: 8, CacheTTL: time.Minute})

	points, err := svc.Trend(context.Background(), 1, []string{"2025-02", "2025-01"})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2025-02", points[0].Month)
	assert.Equal(t, "2025-01", points[1].Month)
	assert.Equal(t, 10.0, points[0].Income)
	assert.Equal(t, 4.0, points[0].Expense)
}
