package http

import (
	"net/http"
	"strings"
	"time"

	"budget/internal/log"
)

const sessionCookie = "budget_session"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	if !s.authenticator.Verify(req.Username, req.Password) {
		s.logger.WarnContext(r.Context(), "Login failed",
			log.FieldUsername, req.Username, log.FieldClientIP, clientIP(r))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := s.sessions.Create(req.Username)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	s.logger.InfoContext(r.Context(), "Login succeeded", log.FieldUsername, req.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"username": req.Username,
		"name":     s.authenticator.DisplayName(req.Username),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Revoke(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// userHandler is a handler that runs on behalf of a resolved user.
type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// requireUser resolves the session cookie to a user id, provisioning
// the user row and default categories on first access.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		username, ok := s.sessions.Lookup(c.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		userID, err := s.ledger.ResolveUser(r.Context(), username)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "User resolution failed",
				log.FieldUsername, username, log.FieldError, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		next(w, r, userID)
	}
}
