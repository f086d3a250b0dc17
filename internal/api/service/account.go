package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abdullah0035/itip-sub000/internal/api/auth"
	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/internal/api/event"
	"github.com/abdullah0035/itip-sub000/internal/api/geoip"
	"github.com/abdullah0035/itip-sub000/internal/api/repository"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// AccountService implements the business logic for account, auth, and
// bank-detail operations.
type AccountService struct {
	accountRepo repository.AccountRepository
	revokedRepo repository.RevokedTokenRepository
	bankRepo    repository.BankDetailRepository
	jwtManager  *auth.JWTManager
	social      auth.SocialVerifier
	geo         geoip.Resolver
	producer    event.Publisher
	logger      *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	accountRepo repository.AccountRepository,
	revokedRepo repository.RevokedTokenRepository,
	bankRepo repository.BankDetailRepository,
	jwtManager *auth.JWTManager,
	social auth.SocialVerifier,
	geo geoip.Resolver,
	producer event.Publisher,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		revokedRepo: revokedRepo,
		bankRepo:    bankRepo,
		jwtManager:  jwtManager,
		social:      social,
		geo:         geo,
		producer:    producer,
		logger:      logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new account.
type RegisterInput struct {
	AccountType string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       string
	Currency    string
	ClientIP    string
}

// LoginInput holds the parameters for password login.
type LoginInput struct {
	AccountType string
	Email       string
	Password    string
	ClientIP    string
}

// SocialLoginInput holds the parameters for social login.
type SocialLoginInput struct {
	AccountType string
	Provider    string
	Token       string
	ClientIP    string
}

// UpdateProfileInput holds the parameters for updating a profile.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	City      *string
}

// SaveBankDetailsInput holds the parameters for saving a payout destination.
type SaveBankDetailsInput struct {
	BankName string
	Holder   string
	IBAN     string
	Currency string
}

// AuthResult is what every successful auth operation returns: the account
// and a signed access token. The web tier stores both in one atomic step so
// a token can never exist without its login flag.
type AuthResult struct {
	Account *domain.Account
	Token   string
}

// --- Auth operations ---

// Register creates a new account, hashes the password, and signs a token.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if !domain.IsValidAccountType(input.AccountType) {
		return nil, apperrors.InvalidInput("account type must be provider or customer")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, apperrors.InvalidInput("first name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	currency := input.Currency
	if currency == "" {
		currency = "TRY"
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Type:         input.AccountType,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Currency:     currency,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.enrichLocation(ctx, account, input.ClientIP)

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	token, err := s.jwtManager.Generate(account.ID, account.Type, account.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishAccountRegistered(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.registered event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", account.ID),
		slog.String("type", account.Type),
	)

	return &AuthResult{Account: account, Token: token}, nil
}

// Login authenticates an account with email and password.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	if !domain.IsValidAccountType(input.AccountType) {
		return nil, apperrors.InvalidInput("account type must be provider or customer")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	account, err := s.accountRepo.GetByEmail(ctx, input.Email, input.AccountType)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	if !account.IsActive {
		// Deactivated accounts get 403 so the client tears the session down
		// instead of offering a credential retry.
		return nil, apperrors.Forbidden("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.jwtManager.Generate(account.ID, account.Type, account.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "account logged in",
		slog.String("account_id", account.ID),
		slog.String("type", account.Type),
	)

	return &AuthResult{Account: account, Token: token}, nil
}

// SocialLogin exchanges a provider token for a session, creating the account
// on first login. Same session semantics as password login.
func (s *AccountService) SocialLogin(ctx context.Context, input SocialLoginInput) (*AuthResult, error) {
	if !domain.IsValidAccountType(input.AccountType) {
		return nil, apperrors.InvalidInput("account type must be provider or customer")
	}
	if input.Token == "" {
		return nil, apperrors.InvalidInput("social token is required")
	}

	identity, err := s.social.Verify(ctx, input.Provider, input.Token)
	if err != nil {
		return nil, fmt.Errorf("verify social token: %w", err)
	}

	account, err := s.accountRepo.GetByOAuth(ctx, identity.Provider, identity.Subject, input.AccountType)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("lookup social account: %w", err)
	}

	if account == nil || errors.Is(err, apperrors.ErrNotFound) {
		now := time.Now().UTC()
		account = &domain.Account{
			ID:            uuid.New().String(),
			Type:          input.AccountType,
			Email:         identity.Email,
			FirstName:     identity.FirstName,
			LastName:      identity.LastName,
			Currency:      "TRY",
			IsActive:      true,
			OAuthProvider: identity.Provider,
			OAuthSubject:  identity.Subject,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		s.enrichLocation(ctx, account, input.ClientIP)

		if err := s.accountRepo.Create(ctx, account); err != nil {
			return nil, fmt.Errorf("create social account: %w", err)
		}

		if err := s.producer.PublishAccountRegistered(ctx, account); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish account.registered event",
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if !account.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	token, err := s.jwtManager.Generate(account.ID, account.Type, account.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "social login",
		slog.String("account_id", account.ID),
		slog.String("provider", identity.Provider),
	)

	return &AuthResult{Account: account, Token: token}, nil
}

// Logout revokes the presented token by its id.
func (s *AccountService) Logout(ctx context.Context, claims *auth.Claims) error {
	expiresAt := time.Now().UTC().Add(s.jwtManager.Expiry())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revokedRepo.Revoke(ctx, claims.ID, claims.AccountID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.logger.InfoContext(ctx, "account logged out",
		slog.String("account_id", claims.AccountID),
	)

	return nil
}

// ChangePassword verifies the current password and replaces it.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	account.PasswordHash = string(hashedPassword)
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("update account password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("account_id", account.ID),
	)

	return nil
}

// Authenticate validates a token string, checks revocation and account
// status, and returns the claims. Errors map to the statuses the web tier
// keys its side effects on: 401 for missing/expired tokens, 403 for revoked
// tokens and deactivated accounts.
func (s *AccountService) Authenticate(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if tokenString == "" {
		return nil, apperrors.Unauthorized("missing auth token")
	}

	claims, err := s.jwtManager.Validate(tokenString)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	revoked, err := s.revokedRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.Forbidden("token has been revoked")
	}

	account, err := s.accountRepo.GetByID(ctx, claims.AccountID)
	if err != nil {
		return nil, apperrors.Forbidden("account no longer exists")
	}
	if !account.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	return claims, nil
}

// --- Profile operations ---

// GetProfile retrieves an account by its ID.
func (s *AccountService) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account profile: %w", err)
	}
	return account, nil
}

// UpdateProfile updates an account's profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, input UpdateProfileInput) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.InvalidInput("first name must not be empty")
		}
		account.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		account.LastName = *input.LastName
	}
	if input.Phone != nil {
		account.Phone = *input.Phone
	}
	if input.City != nil {
		account.City = *input.City
	}

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("account_id", account.ID),
	)

	return account, nil
}

// --- Bank detail operations ---

// GetBankDetails returns the account's payout destinations.
func (s *AccountService) GetBankDetails(ctx context.Context, accountID string) ([]domain.BankDetail, error) {
	details, err := s.bankRepo.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list bank details: %w", err)
	}
	return details, nil
}

// SaveBankDetails inserts or replaces the payout destination for the
// account's currency.
func (s *AccountService) SaveBankDetails(ctx context.Context, accountID string, input SaveBankDetailsInput) (*domain.BankDetail, error) {
	if input.BankName == "" {
		return nil, apperrors.InvalidInput("bank name is required")
	}
	if input.Holder == "" {
		return nil, apperrors.InvalidInput("account holder is required")
	}
	if input.IBAN == "" {
		return nil, apperrors.InvalidInput("iban is required")
	}
	currency := input.Currency
	if currency == "" {
		currency = "TRY"
	}

	now := time.Now().UTC()
	detail := &domain.BankDetail{
		ID:        uuid.New().String(),
		AccountID: accountID,
		BankName:  input.BankName,
		Holder:    input.Holder,
		IBAN:      input.IBAN,
		Currency:  currency,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.bankRepo.Upsert(ctx, detail); err != nil {
		return nil, fmt.Errorf("save bank details: %w", err)
	}

	s.logger.InfoContext(ctx, "bank details saved",
		slog.String("account_id", accountID),
		slog.String("currency", currency),
	)

	return detail, nil
}

// --- Helpers ---

// enrichLocation fills country and city from the client IP. Best effort; a
// geo failure never fails the calling operation.
func (s *AccountService) enrichLocation(ctx context.Context, account *domain.Account, clientIP string) {
	if clientIP == "" {
		return
	}

	loc, err := s.geo.Lookup(ctx, clientIP)
	if err != nil {
		s.logger.WarnContext(ctx, "geoip lookup failed",
			slog.String("error", err.Error()),
		)
		return
	}

	account.Country = loc.Country
	account.City = loc.City
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
