package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenPrefix marks all bearer tokens issued by this API.
const tokenPrefix = "bio_"

// tokenSecretLength is the random portion of a token, in bytes.
const tokenSecretLength = 24

// ErrInvalidCredentials is returned when a username/password pair
// doesn't match an account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// =============================================================================
// Account Queries
// =============================================================================

// CreateAccount inserts a new account with a bcrypt-hashed password.
// Returns ErrDuplicate if the username is taken.
func (db *DB) CreateAccount(ctx context.Context, username, password string, email *string, isAdmin bool) (*Account, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO accounts (username, password_hash, email, is_admin)
		VALUES (?, ?, ?, ?)
	`, username, string(hash), email, isAdmin)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username %q", ErrDuplicate, username)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("account insert id: %w", err)
	}

	return db.GetAccountByID(ctx, id)
}

// GetAccountByID retrieves an account by ID.
func (db *DB) GetAccountByID(ctx context.Context, id int64) (*Account, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, email, is_admin, created_at
		FROM accounts
		WHERE id = ?
	`, id)
	return scanAccount(row)
}

// GetAccountByUsername retrieves an account by username.
func (db *DB) GetAccountByUsername(ctx context.Context, username string) (*Account, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, email, is_admin, created_at
		FROM accounts
		WHERE username = ?
	`, username)
	return scanAccount(row)
}

// Authenticate verifies a username/password pair.
//
// Unknown usernames and wrong passwords both return
// ErrInvalidCredentials so callers can't distinguish the two.
func (db *DB) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	account, err := db.GetAccountByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// =============================================================================
// Token Queries
// =============================================================================

// IssueToken creates a bearer token for an account. The plaintext is
// returned exactly once; only its SHA-256 digest is stored.
func (db *DB) IssueToken(ctx context.Context, accountID int64, name string) (*IssuedToken, error) {
	secret := make([]byte, tokenSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}

	plaintext := tokenPrefix + hex.EncodeToString(secret)
	digest := hashToken(plaintext)
	tokenID := uuid.New().String()

	_, err := db.ExecContext(ctx, `
		INSERT INTO auth_tokens (id, account_id, token_hash, name)
		VALUES (?, ?, ?, ?)
	`, tokenID, accountID, digest, name)
	if err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}

	token, err := db.getTokenByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("reload issued token: %w", err)
	}

	return &IssuedToken{AuthToken: *token, Plaintext: plaintext}, nil
}

// GetAccountByToken resolves a plaintext bearer token to its account.
// Returns ErrNotFound for unknown or revoked tokens.
func (db *DB) GetAccountByToken(ctx context.Context, plaintext string) (*Account, error) {
	digest := hashToken(plaintext)

	var accountID int64
	var tokenID string
	err := db.QueryRowContext(ctx, `
		SELECT id, account_id FROM auth_tokens WHERE token_hash = ?
	`, digest).Scan(&tokenID, &accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query token: %w", err)
	}

	// Best-effort usage tracking; a failure here must not block auth.
	_, err = db.ExecContext(ctx,
		`UPDATE auth_tokens SET last_used_at = datetime('now') WHERE id = ?`, tokenID)
	if err != nil {
		db.logger.Warn("failed to update token last_used_at", "token_id", tokenID, "error", err)
	}

	return db.GetAccountByID(ctx, accountID)
}

// RevokeToken deletes a token by ID.
// Returns ErrNotFound if the token doesn't exist.
func (db *DB) RevokeToken(ctx context.Context, tokenID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = ?`, tokenID)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
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

// getTokenByID retrieves a token record.
func (db *DB) getTokenByID(ctx context.Context, id string) (*AuthToken, error) {
	var token AuthToken
	var createdAt, lastUsedAt sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT id, account_id, name, created_at, last_used_at
		FROM auth_tokens
		WHERE id = ?
	`, id).Scan(&token.ID, &token.AccountID, &token.Name, &createdAt, &lastUsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query token by id: %w", err)
	}

	if t := parseTimestamp(createdAt); t != nil {
		token.CreatedAt = *t
	}
	token.LastUsedAt = parseTimestamp(lastUsedAt)

	return &token, nil
}

// hashToken returns the hex SHA-256 digest of a plaintext token.
func hashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// scanAccount reads one account row.
func scanAccount(s scanner) (*Account, error) {
	var account Account
	var email sql.NullString
	var createdAt sql.NullString

	err := s.Scan(
		&account.ID,
		&account.Username,
		&account.passwordHash,
		&email,
		&account.IsAdmin,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account row: %w", err)
	}

	if email.Valid {
		account.Email = &email.String
	}
	if t := parseTimestamp(createdAt); t != nil {
		account.CreatedAt = *t
	}

	return &account, nil
}
