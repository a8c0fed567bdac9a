// Package http exposes the ledger as a stateless JSON API. Handlers
// call the ledger's read operations fresh on every request; no render
// state survives between requests.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"budget/internal/auth"
	"budget/internal/cache"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
)

// Server wires the ledger service, authentication, and middleware into
// an http.Server.
type Server struct {
	http.Server

	ledger        *ledger.Service
	authenticator *auth.Authenticator
	sessions      *auth.Sessions
	rateLimiter   *ratelimit.Limiter
	logger        *log.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, svc *ledger.Service, authenticator *auth.Authenticator, sessions *auth.Sessions) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		ledger:        svc,
		authenticator: authenticator,
		sessions:      sessions,
		rateLimiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:        log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("/logout", s.withMiddleware(s.handleLogout))

	mux.HandleFunc("/categories", s.withMiddleware(s.requireUser(s.handleCategories)))
	mux.HandleFunc("/categories/rename", s.withMiddleware(s.requireUser(s.handleRenameCategory)))
	mux.HandleFunc("/categories/toggle", s.withMiddleware(s.requireUser(s.handleToggleCategory)))
	mux.HandleFunc("/incomes", s.withMiddleware(s.requireUser(s.handleIncomes)))
	mux.HandleFunc("/expenses", s.withMiddleware(s.requireUser(s.handleExpenses)))
	mux.HandleFunc("/budgets", s.withMiddleware(s.requireUser(s.handleBudgets)))
	mux.HandleFunc("/summary", s.withMiddleware(s.requireUser(s.handleSummary)))
	mux.HandleFunc("/trends", s.withMiddleware(s.requireUser(s.handleTrends)))
	mux.HandleFunc("/breakdown", s.withMiddleware(s.requireUser(s.handleBreakdown)))
	mux.HandleFunc("/export/csv", s.withMiddleware(s.requireUser(s.handleExportCSV)))
	mux.HandleFunc("/export/excel", s.withMiddleware(s.requireUser(s.handleExportExcel)))

	return s
}

// RegisterCleaners adds the server's sweepable state to the janitor
// that also sweeps the ledger's read caches.
func (s *Server) RegisterCleaners(j *cache.Janitor) {
	j.Register(s.sessions)
	j.Register(s.rateLimiter)
}

// withMiddleware adds security headers, rate limiting on writes, and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			if !s.rateLimiter.Allow(clientIP) {
				s.logger.WarnContext(ctx, "Rate limit exceeded",
					log.FieldRequestID, requestID,
					log.FieldClientIP, clientIP,
					log.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
