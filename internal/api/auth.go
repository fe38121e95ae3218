package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"biorhythm-api/internal/database"
)

// tokenRequest is the payload for POST /auth/token.
type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// IssueToken handles POST /api/v1/auth/token
//
// Exchanges a username/password pair for a bearer token. The plaintext
// token is returned once and never stored.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := validateStruct(&req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	account, err := h.db.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			WriteUnauthorized(w, "Invalid credentials")
			return
		}
		h.logger.Error("authentication failed", slog.Any("error", err))
		WriteInternalError(w, "Authentication failed")
		return
	}

	token, err := h.db.IssueToken(ctx, account.ID, "api")
	if err != nil {
		h.logger.Error("failed to issue token", slog.Any("error", err))
		WriteInternalError(w, "Failed to issue token")
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"token":   token.Plaintext,
		"account": account,
	})
}

// GetCurrentAccount handles GET /api/v1/me
func (h *Handlers) GetCurrentAccount(w http.ResponseWriter, r *http.Request) {
	account := GetAccount(r)
	if account == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}
	WriteSuccess(w, account)
}

// GetGlobalStatistics handles GET /api/v1/statistics
func (h *Handlers) GetGlobalStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.db.GetGlobalStats(ctx)
	if err != nil {
		h.logger.Error("failed to get global stats", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve statistics")
		return
	}

	WriteSuccess(w, stats)
}
