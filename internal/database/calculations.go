package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// =============================================================================
// Calculation Queries
// =============================================================================

// CreateCalculation persists a calculation together with all of its
// data points in a single transaction.
//
// This is the orchestrator's core invariant: either the calculation
// row and every data point land together, or nothing is written at
// all. A failure on any point (constraint violation, engine bug, I/O
// error) rolls the whole batch back so partial batches can never skew
// later statistics.
//
// The batch is validated before the transaction starts: it must be
// non-empty and must not contain two points for the same date.
func (db *DB) CreateCalculation(ctx context.Context, calc *Calculation, points []DataPoint) error {
	if len(points) == 0 {
		return errors.New("calculation requires at least one data point")
	}

	seen := make(map[string]bool, len(points))
	for _, p := range points {
		if seen[p.Date] {
			return fmt.Errorf("%w: data point date %s appears twice", ErrDuplicate, p.Date)
		}
		seen[p.Date] = true

		// ISO dates compare lexicographically
		if p.Date < calc.StartDate || p.Date > calc.EndDate {
			return fmt.Errorf("data point date %s outside range [%s, %s]", p.Date, calc.StartDate, calc.EndDate)
		}
	}

	err := db.WithTx(ctx, func(tx *Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO calculations (person_id, start_date, end_date, days_calculated, engine_version, notes)
			VALUES (?, ?, ?, ?, ?, ?)
		`, calc.PersonID, calc.StartDate, calc.EndDate, calc.DaysCalculated, calc.EngineVersion, calc.Notes)
		if err != nil {
			return fmt.Errorf("insert calculation: %w", err)
		}

		calcID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("calculation insert id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO data_points (
				calculation_id, person_id, date, days_alive,
				physical, emotional, intellectual,
				is_physical_critical, is_emotional_critical, is_intellectual_critical
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare data point insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			_, err := stmt.ExecContext(ctx,
				calcID, calc.PersonID, p.Date, p.DaysAlive,
				p.Physical, p.Emotional, p.Intellectual,
				p.PhysicalCritical, p.EmotionalCritical, p.IntellectualCritical,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: data point for %s", ErrDuplicate, p.Date)
				}
				return fmt.Errorf("insert data point %s: %w", p.Date, err)
			}
		}

		calc.ID = calcID
		return nil
	})
	if err != nil {
		return err
	}

	created, err := db.GetCalculationByID(ctx, calc.ID)
	if err != nil {
		return fmt.Errorf("reload created calculation: %w", err)
	}
	*calc = *created

	return nil
}

// GetCalculationByID retrieves a calculation by ID.
// Returns ErrNotFound if no such calculation exists.
func (db *DB) GetCalculationByID(ctx context.Context, id int64) (*Calculation, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, person_id, start_date, end_date, days_calculated, engine_version, notes, created_at
		FROM calculations
		WHERE id = ?
	`, id)

	calc, err := scanCalculation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query calculation by id: %w", err)
	}

	return calc, nil
}

// ListCalculationsParams filters and pages the calculation listing.
type ListCalculationsParams struct {
	PersonID int64 // 0 means all people
	Limit    int
	Offset   int
}

// ListCalculations returns a page of calculations, newest first, plus
// the total count matching the filter.
func (db *DB) ListCalculations(ctx context.Context, params ListCalculationsParams) ([]Calculation, int, error) {
	where := ""
	args := []interface{}{}

	if params.PersonID != 0 {
		where = "WHERE person_id = ?"
		args = append(args, params.PersonID)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM calculations " + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count calculations: %w", err)
	}

	query := `
		SELECT id, person_id, start_date, end_date, days_calculated, engine_version, notes, created_at
		FROM calculations ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, params.Limit, params.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	var calcs []Calculation
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan calculation row: %w", err)
		}
		calcs = append(calcs, *calc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate calculation rows: %w", err)
	}

	return calcs, total, nil
}

// DeleteCalculation removes a calculation. Its data points cascade.
// Returns ErrNotFound if the calculation doesn't exist.
func (db *DB) DeleteCalculation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM calculations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete calculation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// CountDataPoints returns the number of data points stored for a
// calculation. Used by the round-trip check between stored summary
// counters and actual rows.
func (db *DB) CountDataPoints(ctx context.Context, calculationID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM data_points WHERE calculation_id = ?`, calculationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count data points: %w", err)
	}
	return count, nil
}

// scanCalculation reads one calculation row.
func scanCalculation(s scanner) (*Calculation, error) {
	var calc Calculation
	var notes sql.NullString
	var createdAt sql.NullString

	err := s.Scan(
		&calc.ID,
		&calc.PersonID,
		&calc.StartDate,
		&calc.EndDate,
		&calc.DaysCalculated,
		&calc.EngineVersion,
		&notes,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		calc.Notes = &notes.String
	}
	if t := parseTimestamp(createdAt); t != nil {
		calc.CreatedAt = *t
	}

	return &calc, nil
}
