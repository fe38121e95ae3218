package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"biorhythm-api/internal/database"
)

// ListDataPoints handles GET /api/v1/data-points
//
// Read-only listing of individual data points with person_id,
// calculation_id, start_date, end_date and critical_only filters.
func (h *Handlers) ListDataPoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := parsePagination(r)

	params := database.ListDataPointsParams{
		Limit:  page.PageSize,
		Offset: page.Offset(),
	}

	if s := r.URL.Query().Get("person_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			WriteBadRequest(w, "person_id must be a positive integer")
			return
		}
		params.PersonID = id
	}

	if s := r.URL.Query().Get("calculation_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			WriteBadRequest(w, "calculation_id must be a positive integer")
			return
		}
		params.CalculationID = id
	}

	startDate, err := parseDateParam(r, "start_date")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	params.StartDate = startDate

	endDate, err := parseDateParam(r, "end_date")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	params.EndDate = endDate

	params.CriticalOnly = r.URL.Query().Get("critical_only") == "true"

	points, total, err := h.db.ListDataPoints(ctx, params)
	if err != nil {
		h.logger.Error("failed to list data points", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve data points")
		return
	}

	if points == nil {
		points = []database.DataPoint{}
	}

	WriteSuccess(w, Page{
		Count:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  points,
	})
}

// GetDataPoint handles GET /api/v1/data-points/{id}
func (h *Handlers) GetDataPoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	point, err := h.db.GetDataPointByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Data point not found")
			return
		}
		h.logger.Error("failed to get data point", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve data point")
		return
	}

	WriteSuccess(w, point)
}
