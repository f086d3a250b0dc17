package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/database"
)

// AccountRepository implements repository.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool database.DBTX
}

// NewAccountRepository creates a new PostgreSQL-backed account repository.
func NewAccountRepository(pool database.DBTX) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, type, email, password_hash, first_name, last_name, phone, country, city, balance, currency, is_active, oauth_provider, oauth_subject, created_at, updated_at`

// Create inserts a new account into the database.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Type,
		a.Email,
		a.PasswordHash,
		a.FirstName,
		a.LastName,
		a.Phone,
		a.Country,
		a.City,
		a.Balance,
		a.Currency,
		a.IsActive,
		a.OAuthProvider,
		a.OAuthSubject,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("account", "email", a.Email)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1`

	return r.scanAccount(ctx, query, id)
}

// GetByEmail retrieves an account by email and type. The unique index is on
// (email, type), so one email can hold both a provider and a customer account.
func (r *AccountRepository) GetByEmail(ctx context.Context, email, accountType string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1 AND type = $2`

	return r.scanAccount(ctx, query, email, accountType)
}

// GetByOAuth retrieves an account by OAuth provider and subject.
func (r *AccountRepository) GetByOAuth(ctx context.Context, provider, subject, accountType string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE oauth_provider = $1 AND oauth_subject = $2 AND type = $3`

	return r.scanAccount(ctx, query, provider, subject, accountType)
}

// Update modifies an existing account in the database.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE accounts
		SET email = $1, password_hash = $2, first_name = $3, last_name = $4, phone = $5,
		    country = $6, city = $7, is_active = $8, oauth_provider = $9, oauth_subject = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.pool.Exec(ctx, query,
		a.Email,
		a.PasswordHash,
		a.FirstName,
		a.LastName,
		a.Phone,
		a.Country,
		a.City,
		a.IsActive,
		a.OAuthProvider,
		a.OAuthSubject,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("account", "email", a.Email)
		}
		return fmt.Errorf("update account: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", a.ID)
	}

	return nil
}

// AddBalance atomically adds amount (minor units) to the account balance.
func (r *AccountRepository) AddBalance(ctx context.Context, id string, amount int64) error {
	query := `UPDATE accounts SET balance = balance + $1, updated_at = $2 WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, amount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("add balance: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}

	return nil
}

// scanAccount executes a query expected to return a single account row.
func (r *AccountRepository) scanAccount(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	var a domain.Account

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&a.ID,
		&a.Type,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&a.Phone,
		&a.Country,
		&a.City,
		&a.Balance,
		&a.Currency,
		&a.IsActive,
		&a.OAuthProvider,
		&a.OAuthSubject,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &a, nil
}

// --- Revoked Token Repository ---

// RevokedTokenRepository implements repository.RevokedTokenRepository using PostgreSQL.
type RevokedTokenRepository struct {
	pool database.DBTX
}

// NewRevokedTokenRepository creates a new PostgreSQL-backed revoked token repository.
func NewRevokedTokenRepository(pool database.DBTX) *RevokedTokenRepository {
	return &RevokedTokenRepository{pool: pool}
}

// Revoke records a token id as revoked until its natural expiry.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, tokenID, accountID string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (token_id, account_id, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, tokenID, accountID, time.Now().UTC(), expiresAt)
	if err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}

	return nil
}

// IsRevoked reports whether the token id has been revoked.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)`, tokenID,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}

	return revoked, nil
}

// Prune deletes revocation rows whose tokens have expired anyway.
func (r *RevokedTokenRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune revoked tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
