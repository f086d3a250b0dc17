package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/internal/api/repository"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/slug"
)

// maxSuggestedAmounts caps the suggested amount chips a provider can attach.
const maxSuggestedAmounts = 6

// QRCodeService implements the business logic for QR code operations.
type QRCodeService struct {
	qrRepo        repository.QRCodeRepository
	accountRepo   repository.AccountRepository
	publicBaseURL string
	logger        *slog.Logger
}

// NewQRCodeService creates a new QR code service.
func NewQRCodeService(
	qrRepo repository.QRCodeRepository,
	accountRepo repository.AccountRepository,
	publicBaseURL string,
	logger *slog.Logger,
) *QRCodeService {
	return &QRCodeService{
		qrRepo:        qrRepo,
		accountRepo:   accountRepo,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// CreateQRCodeInput holds the parameters for creating a QR code.
type CreateQRCodeInput struct {
	Label            string
	SuggestedAmounts []int64
	Currency         string
}

// QRCodeView is a QR code plus its derived payload URL.
type QRCodeView struct {
	domain.QRCode
	PayloadURL string `json:"payload_url"`
}

// ResolvedQRCode is the public view a customer sees after scanning. Only
// what the tip page needs; no provider internals.
type ResolvedQRCode struct {
	Slug             string  `json:"slug"`
	Label            string  `json:"label"`
	ProviderName     string  `json:"provider_name"`
	SuggestedAmounts []int64 `json:"suggested_amounts,omitempty"`
	Currency         string  `json:"currency"`
}

// Create creates a new QR code for the provider.
func (s *QRCodeService) Create(ctx context.Context, providerID string, input CreateQRCodeInput) (*QRCodeView, error) {
	if input.Label == "" {
		return nil, apperrors.InvalidInput("label is required")
	}
	if len(input.SuggestedAmounts) > maxSuggestedAmounts {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d suggested amounts allowed", maxSuggestedAmounts))
	}
	for _, amount := range input.SuggestedAmounts {
		if amount <= 0 {
			return nil, apperrors.InvalidInput("suggested amounts must be positive")
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = "TRY"
	}

	now := time.Now().UTC()
	code := &domain.QRCode{
		ID:               uuid.New().String(),
		ProviderID:       providerID,
		Label:            input.Label,
		Slug:             slug.GenerateUnique(input.Label),
		SuggestedAmounts: input.SuggestedAmounts,
		Currency:         currency,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.qrRepo.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("create qr code: %w", err)
	}

	s.logger.InfoContext(ctx, "qr code created",
		slog.String("qr_code_id", code.ID),
		slog.String("provider_id", providerID),
		slog.String("slug", code.Slug),
	)

	return s.view(code), nil
}

// List returns all QR codes owned by the provider.
func (s *QRCodeService) List(ctx context.Context, providerID string) ([]QRCodeView, error) {
	codes, err := s.qrRepo.ListByProviderID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}

	views := make([]QRCodeView, 0, len(codes))
	for i := range codes {
		views = append(views, *s.view(&codes[i]))
	}
	return views, nil
}

// SetActive flips the active flag on a QR code owned by the provider.
func (s *QRCodeService) SetActive(ctx context.Context, id, providerID string, active bool) error {
	if err := s.qrRepo.SetActive(ctx, id, providerID, active); err != nil {
		return fmt.Errorf("set qr code active: %w", err)
	}

	s.logger.InfoContext(ctx, "qr code active flag changed",
		slog.String("qr_code_id", id),
		slog.Bool("active", active),
	)

	return nil
}

// Resolve returns the public tip-page view for a slug. Inactive codes
// resolve as not found so a withdrawn code stops collecting immediately.
func (s *QRCodeService) Resolve(ctx context.Context, slugValue string) (*ResolvedQRCode, error) {
	if slugValue == "" {
		return nil, apperrors.InvalidInput("slug is required")
	}

	code, err := s.qrRepo.GetBySlug(ctx, slugValue)
	if err != nil {
		return nil, fmt.Errorf("resolve qr code: %w", err)
	}
	if !code.IsActive {
		return nil, apperrors.NotFound("qr code", slugValue)
	}

	provider, err := s.accountRepo.GetByID(ctx, code.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("load qr code provider: %w", err)
	}

	return &ResolvedQRCode{
		Slug:             code.Slug,
		Label:            code.Label,
		ProviderName:     provider.FirstName + " " + provider.LastName,
		SuggestedAmounts: code.SuggestedAmounts,
		Currency:         code.Currency,
	}, nil
}

func (s *QRCodeService) view(code *domain.QRCode) *QRCodeView {
	return &QRCodeView{
		QRCode:     *code,
		PayloadURL: code.PayloadURL(s.publicBaseURL),
	}
}
