package database

import (
	"context"
	"fmt"
)

// =============================================================================
// Statistics Queries
// =============================================================================

// GetPersonStats aggregates all data points for one person, optionally
// filtered to [startDate, endDate] (either may be empty).
//
// A person with no data points returns a zeroed PersonStats, never an
// error; callers must not have to special-case the empty store.
func (db *DB) GetPersonStats(ctx context.Context, personID int64, startDate, endDate string) (*PersonStats, error) {
	where := "WHERE person_id = ?"
	args := []interface{}{personID}

	if startDate != "" {
		where += " AND date >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		where += " AND date <= ?"
		args = append(args, endDate)
	}

	query := `
		SELECT
			COUNT(*),
			COALESCE(MIN(date), ''),
			COALESCE(MAX(date), ''),
			COALESCE(AVG(physical), 0), COALESCE(MIN(physical), 0), COALESCE(MAX(physical), 0),
			COALESCE(AVG(emotional), 0), COALESCE(MIN(emotional), 0), COALESCE(MAX(emotional), 0),
			COALESCE(AVG(intellectual), 0), COALESCE(MIN(intellectual), 0), COALESCE(MAX(intellectual), 0),
			COALESCE(SUM(is_physical_critical), 0),
			COALESCE(SUM(is_emotional_critical), 0),
			COALESCE(SUM(is_intellectual_critical), 0),
			COALESCE(SUM(is_physical_critical OR is_emotional_critical OR is_intellectual_critical), 0)
		FROM data_points ` + where

	stats := &PersonStats{PersonID: personID}
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalDataPoints,
		&stats.EarliestDate,
		&stats.LatestDate,
		&stats.Physical.Average, &stats.Physical.Min, &stats.Physical.Max,
		&stats.Emotional.Average, &stats.Emotional.Min, &stats.Emotional.Max,
		&stats.Intellectual.Average, &stats.Intellectual.Min, &stats.Intellectual.Max,
		&stats.Physical.CriticalDays,
		&stats.Emotional.CriticalDays,
		&stats.Intellectual.CriticalDays,
		&stats.CriticalDays,
	)
	if err != nil {
		return nil, fmt.Errorf("query person stats: %w", err)
	}

	return stats, nil
}

// GetGlobalStats summarizes the whole store: totals, date coverage,
// per-cycle aggregates and activity over the trailing seven days.
func (db *DB) GetGlobalStats(ctx context.Context) (*GlobalStats, error) {
	stats := &GlobalStats{}

	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM people),
			(SELECT COUNT(*) FROM calculations),
			COUNT(*),
			COALESCE(MIN(date), ''),
			COALESCE(MAX(date), ''),
			COALESCE(AVG(physical), 0), COALESCE(MIN(physical), 0), COALESCE(MAX(physical), 0),
			COALESCE(AVG(emotional), 0), COALESCE(MIN(emotional), 0), COALESCE(MAX(emotional), 0),
			COALESCE(AVG(intellectual), 0), COALESCE(MIN(intellectual), 0), COALESCE(MAX(intellectual), 0),
			COALESCE(SUM(is_physical_critical), 0),
			COALESCE(SUM(is_emotional_critical), 0),
			COALESCE(SUM(is_intellectual_critical), 0),
			COALESCE(SUM(is_physical_critical OR is_emotional_critical OR is_intellectual_critical), 0)
		FROM data_points
	`).Scan(
		&stats.TotalPeople,
		&stats.TotalCalculations,
		&stats.TotalDataPoints,
		&stats.EarliestDate,
		&stats.LatestDate,
		&stats.Physical.Average, &stats.Physical.Min, &stats.Physical.Max,
		&stats.Emotional.Average, &stats.Emotional.Min, &stats.Emotional.Max,
		&stats.Intellectual.Average, &stats.Intellectual.Min, &stats.Intellectual.Max,
		&stats.Physical.CriticalDays,
		&stats.Emotional.CriticalDays,
		&stats.Intellectual.CriticalDays,
		&stats.TotalCriticalDays,
	)
	if err != nil {
		return nil, fmt.Errorf("query global stats: %w", err)
	}

	err = db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM calculations WHERE created_at >= datetime('now', '-7 days')),
			(SELECT COUNT(*) FROM people WHERE created_at >= datetime('now', '-7 days'))
	`).Scan(&stats.RecentCalculations, &stats.RecentPeople)
	if err != nil {
		return nil, fmt.Errorf("query recent activity: %w", err)
	}

	return stats, nil
}
