package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrBirthdateImmutable is returned when an update tries to change a
// birthdate that existing calculations already depend on.
var ErrBirthdateImmutable = errors.New("birthdate cannot change while calculations reference it")

// =============================================================================
// Person Queries
// =============================================================================

// CreatePerson inserts a new person and fills in the generated ID and
// timestamps.
func (db *DB) CreatePerson(ctx context.Context, person *Person) error {
	result, err := db.ExecContext(ctx, `
		INSERT INTO people (name, birthdate, email, notes)
		VALUES (?, ?, ?, ?)
	`, person.Name, person.Birthdate, person.Email, person.Notes)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("person insert id: %w", err)
	}

	created, err := db.GetPersonByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reload created person: %w", err)
	}
	*person = *created

	return nil
}

// GetPersonByID retrieves a person by ID.
// Returns ErrNotFound if no such person exists.
func (db *DB) GetPersonByID(ctx context.Context, id int64) (*Person, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, birthdate, email, notes, created_at, updated_at
		FROM people
		WHERE id = ?
	`, id)

	person, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query person by id: %w", err)
	}

	return person, nil
}

// ListPeopleParams filters and pages the people listing.
type ListPeopleParams struct {
	Search string // matches name, email or notes (substring)
	Limit  int
	Offset int
}

// ListPeople returns a page of people ordered by name, plus the total
// count matching the filter (for pagination metadata).
func (db *DB) ListPeople(ctx context.Context, params ListPeopleParams) ([]Person, int, error) {
	where := ""
	args := []interface{}{}

	if params.Search != "" {
		where = `WHERE name LIKE ? OR email LIKE ? OR notes LIKE ?`
		pattern := "%" + params.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM people " + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count people: %w", err)
	}

	query := `
		SELECT id, name, birthdate, email, notes, created_at, updated_at
		FROM people ` + where + `
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`
	args = append(args, params.Limit, params.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan person row: %w", err)
		}
		people = append(people, *person)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate people rows: %w", err)
	}

	return people, total, nil
}

// UpdatePerson updates a person's mutable fields.
//
// The birthdate is immutable once any calculation references the
// person: changing it would silently invalidate every stored data
// point. Returns ErrBirthdateImmutable in that case.
func (db *DB) UpdatePerson(ctx context.Context, person *Person) error {
	current, err := db.GetPersonByID(ctx, person.ID)
	if err != nil {
		return err
	}

	if current.Birthdate != person.Birthdate {
		count, err := db.CountCalculationsForPerson(ctx, person.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrBirthdateImmutable
		}
	}

	_, err = db.ExecContext(ctx, `
		UPDATE people
		SET name = ?, birthdate = ?, email = ?, notes = ?, updated_at = datetime('now')
		WHERE id = ?
	`, person.Name, person.Birthdate, person.Email, person.Notes, person.ID)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}

	updated, err := db.GetPersonByID(ctx, person.ID)
	if err != nil {
		return fmt.Errorf("reload updated person: %w", err)
	}
	*person = *updated

	return nil
}

// DeletePerson removes a person. Calculations and data points cascade.
// Returns ErrNotFound if the person doesn't exist.
func (db *DB) DeletePerson(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
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

// CountCalculationsForPerson returns how many calculations reference a
// person.
func (db *DB) CountCalculationsForPerson(ctx context.Context, personID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM calculations WHERE person_id = ?`, personID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count calculations: %w", err)
	}
	return count, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPerson reads one person row.
func scanPerson(s scanner) (*Person, error) {
	var person Person
	var email, notes sql.NullString
	var createdAt, updatedAt sql.NullString

	err := s.Scan(
		&person.ID,
		&person.Name,
		&person.Birthdate,
		&email,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if email.Valid {
		person.Email = &email.String
	}
	if notes.Valid {
		person.Notes = &notes.String
	}
	if t := parseTimestamp(createdAt); t != nil {
		person.CreatedAt = *t
	}
	if t := parseTimestamp(updatedAt); t != nil {
		person.UpdatedAt = *t
	}

	return &person, nil
}
