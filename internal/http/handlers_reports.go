package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/log"
)

type summaryRowJSON struct {
	Category    string  `json:"category"`
	Budget      float64 `json:"budget"`
	Spent       float64 `json:"spent"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
}

type summaryJSON struct {
	Month       string           `json:"month"`
	TotalIncome float64          `json:"total_income"`
	TotalSpent  float64          `json:"total_spent"`
	OverallLeft float64          `json:"overall_left"`
	Rows        []summaryRowJSON `json:"rows"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid month")
		return
	}
	sum, err := s.ledger.Summary(r.Context(), userID, month)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	out := summaryJSON{
		Month:       month,
		TotalIncome: round2(sum.TotalIncome),
		TotalSpent:  round2(sum.TotalSpent),
		OverallLeft: round2(sum.OverallLeft),
		Rows:        make([]summaryRowJSON, 0, len(sum.Rows)),
	}
	for _, row := range sum.Rows {
		out.Rows = append(out.Rows, summaryRowJSON{
			Category:    row.Category,
			Budget:      round2(row.Budget),
			Spent:       round2(row.Spent),
			Remaining:   round2(row.Remaining),
			PercentUsed: round2(row.PercentUsed),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type trendPointJSON struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// lastMonths returns the n most recent month keys ending at now, oldest
// first.
func lastMonths(now time.Time, n int) []string {
	months := make([]string, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := n - 1; i >= 0; i-- {
		months = append(months, core.MonthOf(first.AddDate(0, -i, 0)))
	}
	return months
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	months := lastMonths(time.Now(), 6)
	if raw := strings.TrimSpace(r.URL.Query().Get("months")); raw != "" {
		months = nil
		for _, m := range strings.Split(raw, ",") {
			m = strings.TrimSpace(m)
			if err := core.ValidateMonth(m); err != nil {
				writeError(w, http.StatusUnprocessableEntity, "invalid month "+m)
				return
			}
			months = append(months, m)
		}
	}
	points, err := s.ledger.Trend(r.Context(), userID, months)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	out := make([]trendPointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, trendPointJSON{Month: p.Month, Income: round2(p.Income), Expense: round2(p.Expense)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid month")
		return
	}
	byCategory, err := s.ledger.Breakdown(r.Context(), userID, month)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	out := make(map[string]float64, len(byCategory))
	for label, total := range byCategory {
		out[label] = round2(total)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	table := export.Table(strings.TrimSpace(r.URL.Query().Get("table")))
	if table == "" {
		table = export.TableExpenses
	}
	history, err := s.ledger.AllData(r.Context(), userID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	data, err := export.CSV(history, table)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(table)+".csv"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.ErrorContext(r.Context(), "Write CSV export failed", log.FieldError, err)
	}
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	history, err := s.ledger.AllData(r.Context(), userID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	data, err := export.Excel(history)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="budget.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.ErrorContext(r.Context(), "Write Excel export failed", log.FieldError, err)
	}
}
