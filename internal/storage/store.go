// Package storage implements the SQLite persistence store.
//
// Every query is scoped by user_id: an operation that names a row owned
// by another user matches nothing and is a no-op, never an error. All
// writes run inside a transaction that commits or rolls back on every
// exit path.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"
	"budget/internal/log"

	_ "modernc.org/sqlite"
)

// DefaultCategories are seeded exactly once for a user with no
// categories at all.
var DefaultCategories = []string{
	"Épargne",
	"Logement",
	"Alimentation",
	"Transport",
	"Électricité",
	"Internet + Mobile",
	"Loisirs",
	"Autres",
}

// Store is the SQLite-backed persistence store.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens (creating if needed) the database at dbPath and runs the
// schema migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:     db,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentStorage),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on any error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.ErrorContext(ctx, "Transaction rollback failed", log.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetOrCreateUser resolves a username to a user id, lazily provisioning
// the row on first authenticated access.
func (s *Store) GetOrCreateUser(ctx context.Context, username string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO users(username) VALUES (?)`, username); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE username = ?`, username).Scan(&id); err != nil {
			return fmt.Errorf("select user: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SeedDefaultCategories creates the default category set for a user who
// has no categories yet. Idempotent: a user with any category at all,
// active or not, is left untouched.
func (s *Store) SeedDefaultCategories(ctx context.Context, userID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM categories WHERE user_id = ?`, userID).Scan(&n); err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if n > 0 {
			return nil
		}
		for _, name := range DefaultCategories {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO categories(user_id, name, active) VALUES (?, ?, 1)`,
				userID, name); err != nil {
				return fmt.Errorf("seed category %q: %w", name, err)
			}
		}
		s.logger.InfoContext(ctx, "Seeded default categories",
			log.FieldUserID, userID, "count", len(DefaultCategories))
		return nil
	})
}

// ListCategories returns the user's categories ordered by name.
func (s *Store) ListCategories(ctx context.Context, userID int64, activeOnly bool) ([]core.Category, error) {
	q := `SELECT id, name, active FROM categories WHERE user_id = ?`
	if activeOnly {
		q += ` AND active = 1`
	}
	q += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		var active int64
		if err := rows.Scan(&c.ID, &c.Name, &active); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Active = active == 1
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// AddCategory creates a category. A duplicate name for the same user is
// a silent no-op, not an error.
func (s *Store) AddCategory(ctx context.Context, userID int64, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories(user_id, name, active) VALUES (?, ?, 1)`,
			userID, name)
		if err != nil {
			return fmt.Errorf("add category: %w", err)
		}
		return nil
	})
}

// RenameCategory renames a category in place. Renaming to a name already
// used by the same user violates the uniqueness constraint and is
// returned as an error.
func (s *Store) RenameCategory(ctx context.Context, userID, id int64, newName string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ? WHERE id = ? AND user_id = ?`,
			newName, id, userID)
		if err != nil {
			return fmt.Errorf("rename category: %w", err)
		}
		return nil
	})
}

// ToggleCategory activates or deactivates a category. Deactivation is
// the only deletion categories ever get; history referencing them stays
// intact.
func (s *Store) ToggleCategory(ctx context.Context, userID, id int64, active bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		v := 0
		if active {
			v = 1
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET active = ? WHERE id = ? AND user_id = ?`,
			v, id, userID)
		if err != nil {
			return fmt.Errorf("toggle category: %w", err)
		}
		return nil
	})
}

// ListIncomes returns the incomes for (user, month), most recently added
// first.
func (s *Store) ListIncomes(ctx context.Context, userID int64, month string) ([]core.Income, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, month, source, amount FROM incomes
		 WHERE user_id = ? AND month = ? ORDER BY id DESC`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	incomes := make([]core.Income, 0)
	for rows.Next() {
		var in core.Income
		if err := rows.Scan(&in.ID, &in.Month, &in.Source, &in.Amount); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

// AddIncome inserts an income entry and returns its id.
func (s *Store) AddIncome(ctx context.Context, userID int64, in core.NewIncome) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO incomes(user_id, month, source, amount) VALUES (?, ?, ?, ?)`,
			userID, in.Month, in.Source, in.Amount)
		if err != nil {
			return fmt.Errorf("add income: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteIncome removes an income entry owned by the user.
func (s *Store) DeleteIncome(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete income: %w", err)
		}
		return nil
	})
}

// ListExpenses returns the expenses for (user, month) with their
// category labels, newest first (date descending, id descending as
// tie-break).
func (s *Store) ListExpenses(ctx context.Context, userID int64, month string) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.spent_on, e.category_id, c.name, e.description, e.amount, e.month
		 FROM expenses e
		 LEFT JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ? AND e.month = ?
		 ORDER BY e.spent_on DESC, e.id DESC`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	expenses := make([]core.Expense, 0)
	for rows.Next() {
		var e core.Expense
		var spentOn string
		var catID sql.NullInt64
		var catName, desc sql.NullString
		if err := rows.Scan(&e.ID, &spentOn, &catID, &catName, &desc, &e.Amount, &e.Month); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		d, err := time.Parse("2006-01-02", spentOn)
		if err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", spentOn, err)
		}
		e.Date = d
		e.CategoryID = catID.Int64
		e.Category = catName.String
		e.Description = desc.String
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// AddExpense inserts an expense entry. The month key is derived from the
// date here so it can never disagree with it.
func (s *Store) AddExpense(ctx context.Context, userID int64, in core.NewExpense) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO expenses(user_id, spent_on, category_id, description, amount, month)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			userID, in.Date.Format("2006-01-02"), in.CategoryID, in.Description,
			in.Amount, core.MonthOf(in.Date))
		if err != nil {
			return fmt.Errorf("add expense: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteExpense removes an expense entry owned by the user.
func (s *Store) DeleteExpense(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		return nil
	})
}

// ListBudgets returns the budgets for (user, month) joined with their
// active category names, ordered by category name. Budgets attached to
// inactive categories are excluded.
func (s *Store) ListBudgets(ctx context.Context, userID int64, month string) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.month, b.category_id, c.name, b.amount
		 FROM budgets b
		 JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = ? AND b.month = ? AND c.active = 1
		 ORDER BY c.name`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := make([]core.Budget, 0)
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Month, &b.CategoryID, &b.Category, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// UpsertBudget sets the budget for (user, month, category) in a single
// atomic statement: inserted if absent, overwritten if present.
func (s *Store) UpsertBudget(ctx context.Context, userID int64, in core.NewBudget) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budgets(user_id, month, category_id, amount) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, month, category_id) DO UPDATE SET amount = excluded.amount`,
			userID, in.Month, in.CategoryID, in.Amount)
		if err != nil {
			return fmt.Errorf("upsert budget: %w", err)
		}
		return nil
	})
}

// AllData returns the user's complete history. Category labels come from
// LEFT JOINs so rows keep their data even if a category ends up
// detached.
func (s *Store) AllData(ctx context.Context, userID int64) (core.History, error) {
	var all core.History

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, month, source, amount FROM incomes
		 WHERE user_id = ? ORDER BY month, id`, userID)
	if err != nil {
		return all, fmt.Errorf("all incomes: %w", err)
	}
	defer rows.Close()
	all.Incomes = make([]core.Income, 0)
	for rows.Next() {
		var in core.Income
		if err := rows.Scan(&in.ID, &in.Month, &in.Source, &in.Amount); err != nil {
			return all, fmt.Errorf("scan income: %w", err)
		}
		all.Incomes = append(all.Incomes, in)
	}
	if err := rows.Err(); err != nil {
		return all, err
	}

	expRows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.spent_on, e.category_id, c.name, e.description, e.amount, e.month
		 FROM expenses e
		 LEFT JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ? ORDER BY e.spent_on`, userID)
	if err != nil {
		return all, fmt.Errorf("all expenses: %w", err)
	}
	defer expRows.Close()
	all.Expenses, err = scanExpenses(expRows)
	if err != nil {
		return all, err
	}

	budRows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.month, b.category_id, c.name, b.amount
		 FROM budgets b
		 LEFT JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = ? ORDER BY b.month, c.name`, userID)
	if err != nil {
		return all, fmt.Errorf("all budgets: %w", err)
	}
	defer budRows.Close()
	all.Budgets = make([]core.Budget, 0)
	for budRows.Next() {
		var b core.Budget
		var catName sql.NullString
		if err := budRows.Scan(&b.ID, &b.Month, &b.CategoryID, &catName, &b.Amount); err != nil {
			return all, fmt.Errorf("scan budget: %w", err)
		}
		b.Category = catName.String
		all.Budgets = append(all.Budgets, b)
	}
	return all, budRows.Err()
}
