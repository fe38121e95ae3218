package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// =============================================================================
// Data Point Queries
// =============================================================================

// ListDataPointsParams filters and pages the data point listing.
// Zero values mean "no filter".
type ListDataPointsParams struct {
	PersonID      int64
	CalculationID int64
	StartDate     string // ISO 8601, inclusive
	EndDate       string // ISO 8601, inclusive
	CriticalOnly  bool   // only days where at least one cycle is critical
	Limit         int
	Offset        int
}

// ListDataPoints returns a page of data points, newest date first,
// plus the total count matching the filter.
func (db *DB) ListDataPoints(ctx context.Context, params ListDataPointsParams) ([]DataPoint, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}

	if params.PersonID != 0 {
		where += " AND person_id = ?"
		args = append(args, params.PersonID)
	}
	if params.CalculationID != 0 {
		where += " AND calculation_id = ?"
		args = append(args, params.CalculationID)
	}
	if params.StartDate != "" {
		where += " AND date >= ?"
		args = append(args, params.StartDate)
	}
	if params.EndDate != "" {
		where += " AND date <= ?"
		args = append(args, params.EndDate)
	}
	if params.CriticalOnly {
		where += " AND (is_physical_critical = 1 OR is_emotional_critical = 1 OR is_intellectual_critical = 1)"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM data_points " + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count data points: %w", err)
	}

	query := `
		SELECT id, calculation_id, person_id, date, days_alive,
			physical, emotional, intellectual,
			is_physical_critical, is_emotional_critical, is_intellectual_critical,
			created_at
		FROM data_points ` + where + `
		ORDER BY date DESC, id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, params.Limit, params.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query data points: %w", err)
	}
	defer rows.Close()

	points, err := collectDataPoints(rows)
	if err != nil {
		return nil, 0, err
	}

	return points, total, nil
}

// GetPersonDataPoints returns a person's data points in chronological
// order, optionally restricted to [startDate, endDate] and capped at
// limit rows (0 means no cap). Used by the per-person timeseries
// endpoint.
func (db *DB) GetPersonDataPoints(ctx context.Context, personID int64, startDate, endDate string, limit int) ([]DataPoint, error) {
	query := `
		SELECT id, calculation_id, person_id, date, days_alive,
			physical, emotional, intellectual,
			is_physical_critical, is_emotional_critical, is_intellectual_critical,
			created_at
		FROM data_points
		WHERE person_id = ?
	`
	args := []interface{}{personID}

	if startDate != "" {
		query += " AND date >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		query += " AND date <= ?"
		args = append(args, endDate)
	}

	query += " ORDER BY date ASC, id ASC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query person data points: %w", err)
	}
	defer rows.Close()

	return collectDataPoints(rows)
}

// GetDataPointByID retrieves a single data point.
// Returns ErrNotFound if no such point exists.
func (db *DB) GetDataPointByID(ctx context.Context, id int64) (*DataPoint, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, calculation_id, person_id, date, days_alive,
			physical, emotional, intellectual,
			is_physical_critical, is_emotional_critical, is_intellectual_critical,
			created_at
		FROM data_points
		WHERE id = ?
	`, id)

	point, err := scanDataPoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query data point by id: %w", err)
	}

	return point, nil
}

// collectDataPoints drains a result set into a slice.
func collectDataPoints(rows *sql.Rows) ([]DataPoint, error) {
	var points []DataPoint
	for rows.Next() {
		point, err := scanDataPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan data point row: %w", err)
		}
		points = append(points, *point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data point rows: %w", err)
	}
	return points, nil
}

// scanDataPoint reads one data point row.
func scanDataPoint(s scanner) (*DataPoint, error) {
	var point DataPoint
	var createdAt sql.NullString

	err := s.Scan(
		&point.ID,
		&point.CalculationID,
		&point.PersonID,
		&point.Date,
		&point.DaysAlive,
		&point.Physical,
		&point.Emotional,
		&point.Intellectual,
		&point.PhysicalCritical,
		&point.EmotionalCritical,
		&point.IntellectualCritical,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if t := parseTimestamp(createdAt); t != nil {
		point.CreatedAt = *t
	}

	return &point, nil
}
