package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"biorhythm-api/internal/database"
)

// personRequest is the payload for creating or updating a person.
type personRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Birthdate string  `json:"birthdate" validate:"required"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Notes     *string `json:"notes" validate:"omitempty,max=1000"`
}

// ListPeople handles GET /api/v1/people
func (h *Handlers) ListPeople(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := parsePagination(r)

	people, total, err := h.db.ListPeople(ctx, database.ListPeopleParams{
		Search: r.URL.Query().Get("search"),
		Limit:  page.PageSize,
		Offset: page.Offset(),
	})
	if err != nil {
		h.logger.Error("failed to list people", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve people")
		return
	}

	if people == nil {
		people = []database.Person{}
	}

	WriteSuccess(w, Page{
		Count:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  people,
	})
}

// CreatePerson handles POST /api/v1/people
func (h *Handlers) CreatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := validateStruct(&req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	if _, err := time.Parse(database.DateLayout, req.Birthdate); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid birthdate format: %s. Use YYYY-MM-DD", req.Birthdate))
		return
	}

	person := &database.Person{
		Name:      req.Name,
		Birthdate: req.Birthdate,
		Email:     req.Email,
		Notes:     req.Notes,
	}

	if err := h.db.CreatePerson(ctx, person); err != nil {
		h.logger.Error("failed to create person", slog.Any("error", err))
		WriteInternalError(w, "Failed to create person")
		return
	}

	WriteCreated(w, person)
}

// GetPerson handles GET /api/v1/people/{id}
func (h *Handlers) GetPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	person, err := h.db.GetPersonByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Person not found")
			return
		}
		h.logger.Error("failed to get person", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve person")
		return
	}

	WriteSuccess(w, person)
}

// UpdatePerson handles PUT /api/v1/people/{id}
func (h *Handlers) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := validateStruct(&req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	if _, err := time.Parse(database.DateLayout, req.Birthdate); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid birthdate format: %s. Use YYYY-MM-DD", req.Birthdate))
		return
	}

	person := &database.Person{
		ID:        id,
		Name:      req.Name,
		Birthdate: req.Birthdate,
		Email:     req.Email,
		Notes:     req.Notes,
	}

	if err := h.db.UpdatePerson(ctx, person); err != nil {
		switch {
		case database.IsNotFound(err):
			WriteNotFound(w, "Person not found")
		case errors.Is(err, database.ErrBirthdateImmutable):
			WriteConflict(w, "Birthdate cannot change while calculations reference this person")
		default:
			h.logger.Error("failed to update person", slog.Any("error", err))
			WriteInternalError(w, "Failed to update person")
		}
		return
	}

	WriteSuccess(w, person)
}

// DeletePerson handles DELETE /api/v1/people/{id}
func (h *Handlers) DeletePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	if err := h.db.DeletePerson(ctx, id); err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Person not found")
			return
		}
		h.logger.Error("failed to delete person", slog.Any("error", err))
		WriteInternalError(w, "Failed to delete person")
		return
	}

	WriteSuccess(w, map[string]string{"message": "Person deleted"})
}

// GetPersonData handles GET /api/v1/people/{id}/data
//
// Returns the person's data points in chronological order, optionally
// restricted by start_date/end_date and capped by limit.
func (h *Handlers) GetPersonData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	person, err := h.db.GetPersonByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Person not found")
			return
		}
		h.logger.Error("failed to get person", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve person")
		return
	}

	startDate, err := parseDateParam(r, "start_date")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	endDate, err := parseDateParam(r, "end_date")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	points, err := h.db.GetPersonDataPoints(ctx, id, startDate, endDate, limit)
	if err != nil {
		h.logger.Error("failed to get person data points", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve data points")
		return
	}

	if points == nil {
		points = []database.DataPoint{}
	}

	rangeStart, rangeEnd := "", ""
	if len(points) > 0 {
		rangeStart = points[0].Date
		rangeEnd = points[len(points)-1].Date
	}

	WriteSuccess(w, map[string]interface{}{
		"person": map[string]interface{}{
			"id":        person.ID,
			"name":      person.Name,
			"birthdate": person.Birthdate,
		},
		"data_points": len(points),
		"date_range": map[string]string{
			"start": rangeStart,
			"end":   rangeEnd,
		},
		"results": points,
	})
}

// GetPersonStatistics handles GET /api/v1/people/{id}/statistics
//
// Aggregates mean/min/max per cycle and critical-day counts over the
// person's data points, optionally filtered to a date sub-range. A
// person with no data returns zero counts, never an error.
func (h *Handlers) GetPersonStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	person, err := h.db.GetPersonByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Person not found")
			return
		}
		h.logger.Error("failed to get person", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve person")
		return
	}

	startDate, err := parseDateParam(r, "start_date")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	endDate, err := parseDateParam(r, "end_date")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	stats, err := h.db.GetPersonStats(ctx, id, startDate, endDate)
	if err != nil {
		h.logger.Error("failed to get person stats", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve statistics")
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"person": map[string]interface{}{
			"id":        person.ID,
			"name":      person.Name,
			"birthdate": person.Birthdate,
		},
		"statistics": stats,
	})
}
