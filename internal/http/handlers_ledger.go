package http

import (
	"net/http"
	"time"

	"budget/internal/core"
)

type incomeJSON struct {
	ID     int64   `json:"id"`
	Month  string  `json:"month"`
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleIncomes(w http.ResponseWriter, r *http.Request, userID int64) {
	switch r.Method {
	case http.MethodGet:
		month, err := monthParam(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid month")
			return
		}
		incomes, err := s.ledger.ListIncomes(r.Context(), userID, month)
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		out := make([]incomeJSON, 0, len(incomes))
		for _, in := range incomes {
			out = append(out, incomeJSON{ID: in.ID, Month: in.Month, Source: in.Source, Amount: round2(in.Amount)})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req struct {
			Month  string      `json:"month"`
			Source string      `json:"source"`
			Amount amountField `json:"amount"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}
		id, err := s.ledger.AddIncome(r.Context(), userID, core.NewIncome{
			Month:  req.Month,
			Source: req.Source,
			Amount: float64(req.Amount),
		})
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})

	case http.MethodDelete:
		id, ok := idParam(r)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "invalid id")
			return
		}
		if err := s.ledger.DeleteIncome(r.Context(), userID, id); err != nil {
			s.writeOpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		methodNotAllowed(w, "GET, POST, DELETE")
	}
}

type expenseJSON struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	CategoryID  int64   `json:"category_id"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Month       string  `json:"month"`
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request, userID int64) {
	switch r.Method {
	case http.MethodGet:
		month, err := monthParam(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid month")
			return
		}
		expenses, err := s.ledger.ListExpenses(r.Context(), userID, month)
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		out := make([]expenseJSON, 0, len(expenses))
		for _, e := range expenses {
			out = append(out, expenseJSON{
				ID:          e.ID,
				Date:        e.Date.Format(time.DateOnly),
				CategoryID:  e.CategoryID,
				Category:    e.Category,
				Description: e.Description,
				Amount:      round2(e.Amount),
				Month:       e.Month,
			})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req struct {
			Date        string      `json:"date"`
			CategoryID  int64       `json:"category_id"`
			Description string      `json:"description"`
			Amount      amountField `json:"amount"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}
		date, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
			return
		}
		id, err := s.ledger.AddExpense(r.Context(), userID, core.NewExpense{
			Date:        date,
			CategoryID:  req.CategoryID,
			Description: req.Description,
			Amount:      float64(req.Amount),
		})
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})

	case http.MethodDelete:
		id, ok := idParam(r)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "invalid id")
			return
		}
		if err := s.ledger.DeleteExpense(r.Context(), userID, id); err != nil {
			s.writeOpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		methodNotAllowed(w, "GET, POST, DELETE")
	}
}
