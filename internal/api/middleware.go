package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"biorhythm-api/internal/database"
	"biorhythm-api/internal/logger"
)

type contextKey string

// accountKey is the context key for the authenticated account.
const accountKey contextKey = "account"

// RequestIDMiddleware adds a unique request ID to each request and its
// logging context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.New().String()
			r.Header.Set("X-Request-ID", requestID)
			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs HTTP requests with structured logging.
func LoggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap ResponseWriter to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", duration),
				slog.String("request_id", r.Header.Get("X-Request-ID")),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func RecoveryMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("request_id", r.Header.Get("X-Request-ID")),
					)
					WriteInternalError(w, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware validates the bearer token on authenticated endpoints
// and attaches the resolved account to the request context. No global
// session state: every request carries its own credentials.
func AuthMiddleware(db *database.DB, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteUnauthorized(w, "Missing bearer token")
				return
			}

			account, err := db.GetAccountByToken(r.Context(), token)
			if err != nil {
				if database.IsNotFound(err) {
					log.Warn("invalid token attempt",
						slog.String("remote_addr", r.RemoteAddr),
						slog.String("path", r.URL.Path),
					)
					WriteUnauthorized(w, "Invalid token")
					return
				}
				log.Error("token lookup failed", slog.Any("error", err))
				WriteInternalError(w, "Authentication failed")
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccount returns the authenticated account from the request
// context, or nil outside AuthMiddleware.
func GetAccount(r *http.Request) *database.Account {
	account, _ := r.Context().Value(accountKey).(*database.Account)
	return account
}

// bearerToken extracts the token from the Authorization header.
// Accepts both "Bearer <token>" and "Token <token>" schemes.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}

	switch strings.ToLower(parts[0]) {
	case "bearer", "token":
		return strings.TrimSpace(parts[1])
	}
	return ""
}
