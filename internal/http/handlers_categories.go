package http

import (
	"net/http"

	"budget/internal/core"
)

type categoryJSON struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, userID int64) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("all") != "1"
		cats, err := s.ledger.ListCategories(r.Context(), userID, activeOnly)
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		out := make([]categoryJSON, 0, len(cats))
		for _, c := range cats {
			out = append(out, categoryJSON{ID: c.ID, Name: c.Name, Active: c.Active})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		// Duplicate names are a silent no-op, not an error.
		if err := s.ledger.AddCategory(r.Context(), userID, req.Name); err != nil {
			s.writeOpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "invalid category id")
		return
	}
	if err := s.ledger.RenameCategory(r.Context(), userID, req.ID, req.Name); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleToggleCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req struct {
		ID     int64 `json:"id"`
		Active bool  `json:"active"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "invalid category id")
		return
	}
	if err := s.ledger.ToggleCategory(r.Context(), userID, req.ID, req.Active); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}

type budgetJSON struct {
	ID         int64   `json:"id"`
	Month      string  `json:"month"`
	CategoryID int64   `json:"category_id"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request, userID int64) {
	switch r.Method {
	case http.MethodGet:
		month, err := monthParam(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid month")
			return
		}
		budgets, err := s.ledger.ListBudgets(r.Context(), userID, month)
		if err != nil {
			s.writeOpError(w, r, err)
			return
		}
		out := make([]budgetJSON, 0, len(budgets))
		for _, b := range budgets {
			out = append(out, budgetJSON{
				ID:         b.ID,
				Month:      b.Month,
				CategoryID: b.CategoryID,
				Category:   b.Category,
				Amount:     round2(b.Amount),
			})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req struct {
			Month      string      `json:"month"`
			CategoryID int64       `json:"category_id"`
			Amount     amountField `json:"amount"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}
		in := core.NewBudget{Month: req.Month, CategoryID: req.CategoryID, Amount: float64(req.Amount)}
		if err := s.ledger.UpsertBudget(r.Context(), userID, in); err != nil {
			s.writeOpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	default:
		methodNotAllowed(w, "GET, POST")
	}
}
