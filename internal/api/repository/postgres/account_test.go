package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/pkg/database"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
)

func newAccountTestFixture(t *testing.T) (*AccountRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewAccountRepository(mock), mock
}

func sampleAccount() *domain.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Account{
		ID:           "acc-1234",
		Type:         domain.AccountProvider,
		Email:        "waiter@example.com",
		PasswordHash: "hash-abc",
		FirstName:    "Ali",
		LastName:     "Yilmaz",
		Phone:        "+905551112233",
		Country:      "TR",
		City:         "Istanbul",
		Balance:      0,
		Currency:     "TRY",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func accountColumnNames() []string {
	return []string{
		"id", "type", "email", "password_hash", "first_name", "last_name",
		"phone", "country", "city", "balance", "currency", "is_active",
		"oauth_provider", "oauth_subject", "created_at", "updated_at",
	}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumnNames()).AddRow(
		a.ID, a.Type, a.Email, a.PasswordHash, a.FirstName, a.LastName,
		a.Phone, a.Country, a.City, a.Balance, a.Currency, a.IsActive,
		a.OAuthProvider, a.OAuthSubject, a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepository_Create_Success(t *testing.T) {
	repo, mock := newAccountTestFixture(t)
	defer mock.Close()

	a := sampleAccount()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(
			a.ID, a.Type, a.Email, a.PasswordHash, a.FirstName, a.LastName,
			a.Phone, a.Country, a.City, a.Balance, a.Currency, a.IsActive,
			a.OAuthProvider, a.OAuthSubject, a.CreatedAt, a.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newAccountTestFixture(t)
	defer mock.Close()

	a := sampleAccount()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(
			a.ID, a.Type, a.Email, a.PasswordHash, a.FirstName, a.LastName,
			a.Phone, a.Country, a.City, a.Balance, a.Currency, a.IsActive,
			a.OAuthProvider, a.OAuthSubject, a.CreatedAt, a.UpdatedAt,
		).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), a)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByEmail_Success(t *testing.T) {
	repo, mock := newAccountTestFixture(t)
	defer mock.Close()

	a := sampleAccount()

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs(a.Email, a.Type).
		WillReturnRows(accountRow(a))

	got, err := repo.GetByEmail(context.Background(), a.Email, a.Type)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Email, got.Email)
	assert.Equal(t, domain.AccountProvider, got.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newAccountTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_AddBalance_Success(t *testing.T) {
	repo, mock := newAccountTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(int64(500), pgxmock.AnyArg(), "acc-1234").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.AddBalance(context.Background(), "acc-1234", 500)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_AddBalance_NotFound(t *testing.T) {
	repo, mock := newAccountTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(int64(500), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.AddBalance(context.Background(), "missing", 500)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Revoked tokens ---

func TestRevokedTokenRepository_RevokeAndCheck(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewRevokedTokenRepository(mock)

	expiry := time.Now().UTC().Add(time.Hour)

	mock.ExpectExec("INSERT INTO revoked_tokens").
		WithArgs("jti-1", "acc-1234", pgxmock.AnyArg(), expiry).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Revoke(context.Background(), "jti-1", "acc-1234", expiry))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("jti-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	revoked, err := repo.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokedTokenRepository_Prune(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewRevokedTokenRepository(mock)

	mock.ExpectExec("DELETE FROM revoked_tokens").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.Prune(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
