package http

import (
	"net/http"
	"time"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.ledger == nil {
		checks["ledger"] = "not configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}
	if s.authenticator == nil {
		checks["auth"] = "not configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["auth"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"status":         "ok",
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
