package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"biorhythm-api/internal/config"
	"biorhythm-api/internal/database"
)

// Pagination defaults, matching the API's documented contract.
const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	db     *database.DB
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *database.DB, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check database health
	if err := h.db.Health(ctx); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	WriteSuccess(w, map[string]string{
		"status": "healthy",
	})
}

// decodeJSON decodes a JSON request body.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}
	defer r.Body.Close()

	return json.NewDecoder(r.Body).Decode(v)
}

// pagination holds resolved page parameters.
type pagination struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the page.
func (p pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// parsePagination reads page/page_size query parameters with the
// documented defaults (page 1, size 100, max 1000). Out-of-range
// values fall back to the defaults rather than erroring, matching the
// forgiving behavior of the list endpoints.
func parsePagination(r *http.Request) pagination {
	p := pagination{Page: 1, PageSize: defaultPageSize}

	if s := r.URL.Query().Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.Page = n
		}
	}
	if s := r.URL.Query().Get("page_size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= maxPageSize {
			p.PageSize = n
		}
	}

	return p
}

// parseDateParam parses an optional YYYY-MM-DD query parameter.
// Returns ("", nil) when the parameter is absent.
func parseDateParam(r *http.Request, name string) (string, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return "", nil
	}
	if _, err := time.Parse(database.DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid %s format: %s. Use YYYY-MM-DD", name, s)
	}
	return s, nil
}

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request, name string) (int64, error) {
	s := chi.URLParam(r, name)
	if s == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
