package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/abdullah0035/itip-sub000/internal/api/auth"
	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/internal/api/geoip"
	"github.com/abdullah0035/itip-sub000/pkg/pagination"
)

// --- Mock Account Repository ---

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByEmail(ctx context.Context, email, accountType string) (*domain.Account, error) {
	args := m.Called(ctx, email, accountType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByOAuth(ctx context.Context, provider, subject, accountType string) (*domain.Account, error) {
	args := m.Called(ctx, provider, subject, accountType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) AddBalance(ctx context.Context, id string, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

// --- Mock Revoked Token Repository ---

type mockRevokedTokenRepository struct {
	mock.Mock
}

func (m *mockRevokedTokenRepository) Revoke(ctx context.Context, tokenID, accountID string, expiresAt time.Time) error {
	args := m.Called(ctx, tokenID, accountID, expiresAt)
	return args.Error(0)
}

func (m *mockRevokedTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRevokedTokenRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Bank Detail Repository ---

type mockBankDetailRepository struct {
	mock.Mock
}

func (m *mockBankDetailRepository) Upsert(ctx context.Context, detail *domain.BankDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *mockBankDetailRepository) ListByAccountID(ctx context.Context, accountID string) ([]domain.BankDetail, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]domain.BankDetail), args.Error(1)
}

// --- Mock QR Code Repository ---

type mockQRCodeRepository struct {
	mock.Mock
}

func (m *mockQRCodeRepository) Create(ctx context.Context, code *domain.QRCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *mockQRCodeRepository) GetByID(ctx context.Context, id string) (*domain.QRCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

func (m *mockQRCodeRepository) GetBySlug(ctx context.Context, slug string) (*domain.QRCode, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

func (m *mockQRCodeRepository) ListByProviderID(ctx context.Context, providerID string) ([]domain.QRCode, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).([]domain.QRCode), args.Error(1)
}

func (m *mockQRCodeRepository) SetActive(ctx context.Context, id, providerID string, active bool) error {
	args := m.Called(ctx, id, providerID, active)
	return args.Error(0)
}

// --- Mock Tip Repository ---

type mockTipRepository struct {
	mock.Mock
}

func (m *mockTipRepository) Create(ctx context.Context, tip *domain.Tip) error {
	args := m.Called(ctx, tip)
	return args.Error(0)
}

func (m *mockTipRepository) ListByProviderID(ctx context.Context, providerID string, p pagination.Params) ([]domain.Tip, int64, error) {
	args := m.Called(ctx, providerID, p)
	return args.Get(0).([]domain.Tip), args.Get(1).(int64), args.Error(2)
}

func (m *mockTipRepository) ListByCustomerID(ctx context.Context, customerID string, p pagination.Params) ([]domain.Tip, int64, error) {
	args := m.Called(ctx, customerID, p)
	return args.Get(0).([]domain.Tip), args.Get(1).(int64), args.Error(2)
}

func (m *mockTipRepository) ProviderDashboard(ctx context.Context, providerID string) (*domain.ProviderDashboard, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderDashboard), args.Error(1)
}

func (m *mockTipRepository) CustomerDashboard(ctx context.Context, customerID string) (*domain.CustomerDashboard, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerDashboard), args.Error(1)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAccountRegistered(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockPublisher) PublishTipReceived(ctx context.Context, tip *domain.Tip) error {
	args := m.Called(ctx, tip)
	return args.Error(0)
}

// --- Mock Social Verifier ---

type mockSocialVerifier struct {
	mock.Mock
}

func (m *mockSocialVerifier) Verify(ctx context.Context, provider, token string) (*auth.SocialIdentity, error) {
	args := m.Called(ctx, provider, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.SocialIdentity), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute)
}

func strPtr(s string) *string {
	return &s
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func newTestAccountService(
	accountRepo *mockAccountRepository,
	revokedRepo *mockRevokedTokenRepository,
	bankRepo *mockBankDetailRepository,
	social *mockSocialVerifier,
	producer *mockPublisher,
) *AccountService {
	return NewAccountService(
		accountRepo, revokedRepo, bankRepo,
		newTestJWTManager(), social, geoip.Noop{}, producer, newTestLogger(),
	)
}
