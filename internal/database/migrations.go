package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
// Each migration should be idempotent (safe to run multiple times).
var migrationsSQL = map[int]string{
	1: migrationV1CoreSchema,
	2: migrationV2Accounts,
}

// migrationV1CoreSchema creates the domain tables.
//
// Key design decisions:
//
// 1. DATES AS TEXT
//   - Calendar dates are stored as ISO strings (YYYY-MM-DD)
//   - Lexicographic order matches chronological order, so range
//     queries work with plain >= / <= comparisons
//
// 2. STRICT OWNERSHIP CHAIN
//   - person 1:N calculation 1:N data_point
//   - All foreign keys cascade on delete; a data point never outlives
//     its calculation, a calculation never outlives its person
//
// 3. ONE DATA POINT PER DATE PER CALCULATION
//   - UNIQUE(calculation_id, date) backs the orchestrator's no-duplicates
//     invariant at the storage layer
//
// 4. AMPLITUDE RANGE CHECKS
//   - The engine only produces values in [-1, 1]; the CHECK constraints
//     catch programming errors before they corrupt statistics
const migrationV1CoreSchema = `
-- Migration 001: Core biorhythm schema

-- ============================================================================
-- Table: people
-- ============================================================================
CREATE TABLE IF NOT EXISTS people (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    name TEXT NOT NULL CHECK (length(name) > 0),

    -- Birthdate anchors every cycle computation for this person
    birthdate TEXT NOT NULL,

    email TEXT,
    notes TEXT,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_people_name ON people(name);


-- ============================================================================
-- Table: calculations
-- ============================================================================
-- One row per orchestrator invocation: a named batch of daily data
-- points over a contiguous date range. Immutable after creation.
-- ============================================================================
CREATE TABLE IF NOT EXISTS calculations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    person_id INTEGER NOT NULL,

    -- Inclusive range covered by this batch
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,

    -- Number of data points written (== days requested on success)
    days_calculated INTEGER NOT NULL CHECK (days_calculated > 0),

    -- Which engine formula produced the values
    engine_version TEXT NOT NULL DEFAULT '',

    notes TEXT,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),

    FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_calculations_person ON calculations(person_id);
CREATE INDEX IF NOT EXISTS idx_calculations_created ON calculations(created_at);


-- ============================================================================
-- Table: data_points
-- ============================================================================
-- One calendar day's derived cycle values within a calculation.
-- person_id is denormalized so per-person statistics avoid a join.
-- ============================================================================
CREATE TABLE IF NOT EXISTS data_points (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    calculation_id INTEGER NOT NULL,
    person_id INTEGER NOT NULL,

    date TEXT NOT NULL,
    days_alive INTEGER NOT NULL,

    physical REAL NOT NULL CHECK (physical >= -1.0 AND physical <= 1.0),
    emotional REAL NOT NULL CHECK (emotional >= -1.0 AND emotional <= 1.0),
    intellectual REAL NOT NULL CHECK (intellectual >= -1.0 AND intellectual <= 1.0),

    is_physical_critical INTEGER NOT NULL DEFAULT 0,
    is_emotional_critical INTEGER NOT NULL DEFAULT 0,
    is_intellectual_critical INTEGER NOT NULL DEFAULT 0,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),

    FOREIGN KEY (calculation_id) REFERENCES calculations(id) ON DELETE CASCADE,
    FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE,

    -- At most one point per date within a calculation
    UNIQUE (calculation_id, date)
);

CREATE INDEX IF NOT EXISTS idx_data_points_person_date ON data_points(person_id, date);
CREATE INDEX IF NOT EXISTS idx_data_points_calculation ON data_points(calculation_id);
`

// migrationV2Accounts creates the authentication tables.
//
// Tokens are stored hashed (SHA-256 of the plaintext); the plaintext
// is shown once at issuance and never persisted.
const migrationV2Accounts = `
-- Migration 002: Accounts and bearer tokens

CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    username TEXT NOT NULL UNIQUE,

    -- bcrypt hash of the account password
    password_hash TEXT NOT NULL,

    email TEXT,
    is_admin INTEGER NOT NULL DEFAULT 0,

    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS auth_tokens (
    id TEXT PRIMARY KEY,

    account_id INTEGER NOT NULL,

    -- SHA-256 hex digest of the bearer token
    token_hash TEXT NOT NULL UNIQUE,

    -- Human-readable label ("bootstrap", "laptop", ...)
    name TEXT NOT NULL DEFAULT '',

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    last_used_at TEXT,

    FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_auth_tokens_account ON auth_tokens(account_id);
`
