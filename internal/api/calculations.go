package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"biorhythm-api/internal/biorhythm"
	"biorhythm-api/internal/database"
)

// Calculation request bounds, matching the documented API contract.
const (
	defaultCalculationDays = 365
	maxCalculationDays     = 3650
)

// calculateRequest is the payload for POST /calculations/calculate.
type calculateRequest struct {
	PersonID  int64   `json:"person_id" validate:"required,gt=0"`
	Days      *int    `json:"days"`       // default 365 when omitted
	StartDate string  `json:"start_date"` // default today when omitted
	Notes     *string `json:"notes" validate:"omitempty,max=1000"`
}

// ListCalculations handles GET /api/v1/calculations
func (h *Handlers) ListCalculations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := parsePagination(r)

	var personID int64
	if s := r.URL.Query().Get("person_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			WriteBadRequest(w, "person_id must be a positive integer")
			return
		}
		personID = id
	}

	calcs, total, err := h.db.ListCalculations(ctx, database.ListCalculationsParams{
		PersonID: personID,
		Limit:    page.PageSize,
		Offset:   page.Offset(),
	})
	if err != nil {
		h.logger.Error("failed to list calculations", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve calculations")
		return
	}

	if calcs == nil {
		calcs = []database.Calculation{}
	}

	WriteSuccess(w, Page{
		Count:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  calcs,
	})
}

// GetCalculation handles GET /api/v1/calculations/{id}
func (h *Handlers) GetCalculation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	calc, err := h.db.GetCalculationByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Calculation not found")
			return
		}
		h.logger.Error("failed to get calculation", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve calculation")
		return
	}

	WriteSuccess(w, calc)
}

// DeleteCalculation handles DELETE /api/v1/calculations/{id}
// Data points cascade with the calculation.
func (h *Handlers) DeleteCalculation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	if err := h.db.DeleteCalculation(ctx, id); err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Calculation not found")
			return
		}
		h.logger.Error("failed to delete calculation", slog.Any("error", err))
		WriteInternalError(w, "Failed to delete calculation")
		return
	}

	WriteSuccess(w, map[string]string{"message": "Calculation deleted"})
}

// Calculate handles POST /api/v1/calculations/calculate
//
// This is the calculation orchestrator: it resolves the requested date
// range, derives one data point per day from the cycle engine, and
// persists the calculation with all of its points in one transaction.
// Either everything lands or nothing does.
func (h *Handlers) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req calculateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := validateStruct(&req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	days := defaultCalculationDays
	if req.Days != nil {
		days = *req.Days
	}
	if days < 1 || days > maxCalculationDays {
		WriteBadRequest(w, fmt.Sprintf("days must be between 1 and %d", maxCalculationDays))
		return
	}

	start := time.Now().UTC()
	if req.StartDate != "" {
		parsed, err := time.Parse(database.DateLayout, req.StartDate)
		if err != nil {
			WriteBadRequest(w, fmt.Sprintf("Invalid start_date format: %s. Use YYYY-MM-DD", req.StartDate))
			return
		}
		start = parsed
	}

	person, err := h.db.GetPersonByID(ctx, req.PersonID)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Person not found")
			return
		}
		h.logger.Error("failed to get person", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve person")
		return
	}

	birthdate, err := person.BirthdateTime()
	if err != nil {
		// Stored birthdates are validated on write; a parse failure
		// here is a data defect, not a client error.
		h.logger.Error("malformed stored birthdate",
			slog.Int64("person_id", person.ID),
			slog.String("birthdate", person.Birthdate),
			slog.Any("error", err))
		WriteInternalError(w, "Calculation failed")
		return
	}

	points := biorhythm.ComputeRange(birthdate, start, days)

	calc := &database.Calculation{
		PersonID:       person.ID,
		StartDate:      points[0].Date.Format(database.DateLayout),
		EndDate:        points[len(points)-1].Date.Format(database.DateLayout),
		DaysCalculated: len(points),
		EngineVersion:  biorhythm.Version,
		Notes:          req.Notes,
	}

	rows := make([]database.DataPoint, 0, len(points))
	for _, p := range points {
		rows = append(rows, database.DataPoint{
			PersonID:             person.ID,
			Date:                 p.Date.Format(database.DateLayout),
			DaysAlive:            p.DaysAlive,
			Physical:             p.Physical,
			Emotional:            p.Emotional,
			Intellectual:         p.Intellectual,
			PhysicalCritical:     p.PhysicalCritical,
			EmotionalCritical:    p.EmotionalCritical,
			IntellectualCritical: p.IntellectualCritical,
		})
	}

	if err := h.db.CreateCalculation(ctx, calc, rows); err != nil {
		if database.IsDuplicate(err) {
			WriteConflict(w, "Calculation contains duplicate dates")
			return
		}
		h.logger.Error("failed to persist calculation",
			slog.Int64("person_id", person.ID),
			slog.Any("error", err))
		WriteInternalError(w, "Calculation failed")
		return
	}

	WriteCreated(w, map[string]interface{}{
		"calculation":         calc,
		"data_points_created": len(rows),
		"date_range": map[string]string{
			"start": calc.StartDate,
			"end":   calc.EndDate,
		},
	})
}
