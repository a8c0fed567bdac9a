package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response failed", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeOpError maps validation failures to 422 and everything else to a
// 500 without leaking internals.
func (s *Server) writeOpError(w http.ResponseWriter, r *http.Request, err error) {
	if isValidationError(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.ErrorContext(r.Context(), "Operation failed",
		log.FieldPath, r.URL.Path, log.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func isValidationError(err error) bool {
	for _, v := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidMonth,
		core.ErrInvalidDate,
		core.ErrInvalidCategory,
		core.ErrEmptyName,
		core.ErrEmptySource,
		core.ErrEmptyDescription,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// monthParam reads and validates the month query parameter, defaulting
// to the current month.
func monthParam(r *http.Request) (string, error) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		return core.MonthOf(time.Now()), nil
	}
	if err := core.ValidateMonth(month); err != nil {
		return "", err
	}
	return month, nil
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeDecodeError distinguishes malformed JSON (400) from a
// well-formed body carrying an invalid amount (422).
func writeDecodeError(w http.ResponseWriter, err error) {
	if isValidationError(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
}

// amountField accepts an amount as a JSON number or as a decimal
// string, with either "." or "," as the separator.
type amountField float64

func (a *amountField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = amountField(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*a = amountField(v)
	return nil
}

// round2 trims response amounts to display precision.
func round2(v float64) float64 {
	return core.Round2(v)
}
