// Package export renders a user's full ledger history as downloadable
// CSV streams or a single Excel workbook.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"budget/internal/core"

	"github.com/xuri/excelize/v2"
)

// Table selects which history table a CSV export dumps.
type Table string

const (
	TableIncomes  Table = "incomes"
	TableExpenses Table = "expenses"
	TableBudgets  Table = "budgets"
)

// Sheet names in the Excel workbook.
const (
	sheetIncomes  = "Revenus"
	sheetExpenses = "Dépenses"
	sheetBudgets  = "Budgets"
)

var (
	incomeHeader  = []string{"id", "month", "source", "amount"}
	expenseHeader = []string{"id", "date", "category", "description", "amount", "month"}
	budgetHeader  = []string{"id", "month", "category", "amount"}
)

func incomeRecord(in core.Income) []string {
	return []string{
		strconv.FormatInt(in.ID, 10),
		in.Month,
		in.Source,
		core.FormatAmount(in.Amount),
	}
}

func expenseRecord(e core.Expense) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Date.Format("2006-01-02"),
		e.Category,
		e.Description,
		core.FormatAmount(e.Amount),
		e.Month,
	}
}

func budgetRecord(b core.Budget) []string {
	return []string{
		strconv.FormatInt(b.ID, 10),
		b.Month,
		b.Category,
		core.FormatAmount(b.Amount),
	}
}

// CSV dumps one history table as UTF-8 CSV with a header row.
func CSV(h core.History, table Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	var records [][]string
	switch table {
	case TableIncomes:
		records = append(records, incomeHeader)
		for _, in := range h.Incomes {
			records = append(records, incomeRecord(in))
		}
	case TableExpenses:
		records = append(records, expenseHeader)
		for _, e := range h.Expenses {
			records = append(records, expenseRecord(e))
		}
	case TableBudgets:
		records = append(records, budgetHeader)
		for _, b := range h.Budgets {
			records = append(records, budgetRecord(b))
		}
	default:
		return nil, fmt.Errorf("unknown export table %q", table)
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Excel renders the full history as one workbook with a sheet per
// table.
func Excel(h core.History) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the incomes sheet.
	if err := f.SetSheetName("Sheet1", sheetIncomes); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetExpenses, sheetBudgets} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeSheet(f, sheetIncomes, incomeHeader, len(h.Incomes), func(i int) []string {
		return incomeRecord(h.Incomes[i])
	}); err != nil {
		return nil, err
	}
	if err := writeSheet(f, sheetExpenses, expenseHeader, len(h.Expenses), func(i int) []string {
		return expenseRecord(h.Expenses[i])
	}); err != nil {
		return nil, err
	}
	if err := writeSheet(f, sheetBudgets, budgetHeader, len(h.Budgets), func(i int) []string {
		return budgetRecord(h.Budgets[i])
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, n int, record func(int) []string) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := setRow(f, sheet, i+2, record(i)); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
