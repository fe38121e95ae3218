package database

import (
	"time"
)

// DateLayout is the ISO 8601 calendar date format used everywhere a
// date crosses the API or storage boundary.
const DateLayout = "2006-01-02"

// Person is an identity record that cycle calculations hang off of.
type Person struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Birthdate string    `json:"birthdate"` // ISO 8601 format: YYYY-MM-DD
	Email     *string   `json:"email"`     // nullable
	Notes     *string   `json:"notes"`     // nullable
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BirthdateTime parses the stored birthdate.
func (p *Person) BirthdateTime() (time.Time, error) {
	return time.Parse(DateLayout, p.Birthdate)
}

// Calculation is one batch of daily data points for a person over a
// contiguous date range. Immutable after creation.
type Calculation struct {
	ID             int64     `json:"id"`
	PersonID       int64     `json:"person_id"`
	StartDate      string    `json:"start_date"` // ISO 8601
	EndDate        string    `json:"end_date"`   // ISO 8601, inclusive
	DaysCalculated int       `json:"days_calculated"`
	EngineVersion  string    `json:"engine_version"`
	Notes          *string   `json:"notes"` // nullable
	CreatedAt      time.Time `json:"created_at"`
}

// DataPoint is one calendar day's derived cycle values.
type DataPoint struct {
	ID            int64  `json:"id"`
	CalculationID int64  `json:"calculation_id"`
	PersonID      int64  `json:"person_id"`
	Date          string `json:"date"` // ISO 8601
	DaysAlive     int    `json:"days_alive"`

	Physical     float64 `json:"physical"`
	Emotional    float64 `json:"emotional"`
	Intellectual float64 `json:"intellectual"`

	PhysicalCritical     bool `json:"is_physical_critical"`
	EmotionalCritical    bool `json:"is_emotional_critical"`
	IntellectualCritical bool `json:"is_intellectual_critical"`

	CreatedAt time.Time `json:"created_at"`
}

// IsAnyCritical reports whether any of the three cycles crosses zero
// on this date.
func (dp *DataPoint) IsAnyCritical() bool {
	return dp.PhysicalCritical || dp.EmotionalCritical || dp.IntellectualCritical
}

// -----------------------------------------------------------------
// Accounts and tokens
// -----------------------------------------------------------------

// Account is an API user that can authenticate and hold tokens.
// The password hash never leaves this package.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	passwordHash string
}

// AuthToken is a bearer token record. Only the hash is stored.
type AuthToken struct {
	ID         string     `json:"id"`
	AccountID  int64      `json:"account_id"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"` // nullable
}

// IssuedToken pairs a stored token record with its plaintext.
// The plaintext is available exactly once, at issuance.
type IssuedToken struct {
	AuthToken
	Plaintext string `json:"token"`
}

// -----------------------------------------------------------------
// Statistics types
// -----------------------------------------------------------------

// CycleStats summarizes one amplitude series.
type CycleStats struct {
	Average      float64 `json:"average"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	CriticalDays int     `json:"critical_days"`
}

// PersonStats aggregates all data points for one person, optionally
// filtered to a date sub-range. A person with no data yields the zero
// value with TotalDataPoints == 0, never an error.
type PersonStats struct {
	PersonID        int64      `json:"person_id"`
	TotalDataPoints int        `json:"total_data_points"`
	EarliestDate    string     `json:"earliest_date"` // "" when empty
	LatestDate      string     `json:"latest_date"`   // "" when empty
	Physical        CycleStats `json:"physical"`
	Emotional       CycleStats `json:"emotional"`
	Intellectual    CycleStats `json:"intellectual"`

	// Days on which at least one cycle is critical
	CriticalDays int `json:"critical_days"`
}

// GlobalStats summarizes the whole store.
type GlobalStats struct {
	TotalPeople       int        `json:"total_people"`
	TotalCalculations int        `json:"total_calculations"`
	TotalDataPoints   int        `json:"total_data_points"`
	TotalCriticalDays int        `json:"total_critical_days"`
	EarliestDate      string     `json:"earliest_date"`
	LatestDate        string     `json:"latest_date"`
	Physical          CycleStats `json:"physical"`
	Emotional         CycleStats `json:"emotional"`
	Intellectual      CycleStats `json:"intellectual"`

	// Activity over the trailing seven days
	RecentCalculations int `json:"recent_calculations_7d"`
	RecentPeople       int `json:"recent_people_7d"`
}
