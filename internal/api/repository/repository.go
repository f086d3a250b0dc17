package repository

import (
	"context"
	"time"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/pkg/pagination"
)

// AccountRepository defines the interface for account persistence operations.
type AccountRepository interface {
	// Create inserts a new account into the store.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetByEmail retrieves an account by email and account type. The same
	// email may exist once as a provider and once as a customer.
	GetByEmail(ctx context.Context, email, accountType string) (*domain.Account, error)

	// GetByOAuth retrieves an account by OAuth provider and subject.
	GetByOAuth(ctx context.Context, provider, subject, accountType string) (*domain.Account, error)

	// Update modifies an existing account in the store.
	Update(ctx context.Context, account *domain.Account) error

	// AddBalance atomically adds amount (minor units) to the account balance.
	AddBalance(ctx context.Context, id string, amount int64) error
}

// RevokedTokenRepository tracks token ids that can no longer authenticate.
type RevokedTokenRepository interface {
	// Revoke records a token id as revoked until its natural expiry.
	Revoke(ctx context.Context, tokenID, accountID string, expiresAt time.Time) error

	// IsRevoked reports whether the token id has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Prune deletes revocation rows whose tokens have expired anyway.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// BankDetailRepository defines the interface for payout destination storage.
type BankDetailRepository interface {
	// Upsert inserts or replaces the bank detail for the account.
	Upsert(ctx context.Context, detail *domain.BankDetail) error

	// ListByAccountID returns all bank details for the given account.
	ListByAccountID(ctx context.Context, accountID string) ([]domain.BankDetail, error)
}

// QRCodeRepository defines the interface for QR code persistence operations.
type QRCodeRepository interface {
	// Create inserts a new QR code into the store.
	Create(ctx context.Context, code *domain.QRCode) error

	// GetByID retrieves a QR code by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.QRCode, error)

	// GetBySlug retrieves a QR code by its public slug.
	GetBySlug(ctx context.Context, slug string) (*domain.QRCode, error)

	// ListByProviderID returns all QR codes owned by the provider.
	ListByProviderID(ctx context.Context, providerID string) ([]domain.QRCode, error)

	// SetActive flips the active flag on a QR code owned by the provider.
	SetActive(ctx context.Context, id, providerID string, active bool) error
}

// TipRepository defines the interface for tip persistence operations.
type TipRepository interface {
	// Create inserts a new tip into the store.
	Create(ctx context.Context, tip *domain.Tip) error

	// ListByProviderID returns the provider's tips, newest first.
	ListByProviderID(ctx context.Context, providerID string, p pagination.Params) ([]domain.Tip, int64, error)

	// ListByCustomerID returns the customer's tips, newest first.
	ListByCustomerID(ctx context.Context, customerID string, p pagination.Params) ([]domain.Tip, int64, error)

	// ProviderDashboard aggregates the provider's tipping activity.
	ProviderDashboard(ctx context.Context, providerID string) (*domain.ProviderDashboard, error)

	// CustomerDashboard aggregates the customer's tipping activity.
	CustomerDashboard(ctx context.Context, customerID string) (*domain.CustomerDashboard, error)
}
