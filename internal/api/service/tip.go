package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/internal/api/event"
	"github.com/abdullah0035/itip-sub000/internal/api/repository"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/pagination"
)

// maxTipAmount caps a single tip at 10000.00 in minor units.
const maxTipAmount = 1_000_000

// TipService implements the business logic for tips and dashboards.
type TipService struct {
	tipRepo     repository.TipRepository
	qrRepo      repository.QRCodeRepository
	accountRepo repository.AccountRepository
	producer    event.Publisher
	logger      *slog.Logger
}

// NewTipService creates a new tip service.
func NewTipService(
	tipRepo repository.TipRepository,
	qrRepo repository.QRCodeRepository,
	accountRepo repository.AccountRepository,
	producer event.Publisher,
	logger *slog.Logger,
) *TipService {
	return &TipService{
		tipRepo:     tipRepo,
		qrRepo:      qrRepo,
		accountRepo: accountRepo,
		producer:    producer,
		logger:      logger,
	}
}

// PayTipInput holds the parameters for paying a tip. CustomerID is empty for
// anonymous tips paid without an account.
type PayTipInput struct {
	Slug       string
	Amount     int64
	Message    string
	CustomerID string
}

// PayTip records a tip against the QR code's provider and credits the
// provider balance. Payment processor integration is out of scope; a tip
// that passes validation is recorded as succeeded.
func (s *TipService) PayTip(ctx context.Context, input PayTipInput) (*domain.Tip, error) {
	if input.Slug == "" {
		return nil, apperrors.InvalidInput("slug is required")
	}
	if input.Amount <= 0 {
		return nil, apperrors.InvalidInput("amount must be positive")
	}
	if input.Amount > maxTipAmount {
		return nil, apperrors.TipFailed("amount exceeds the single-tip limit")
	}
	if len(input.Message) > 280 {
		return nil, apperrors.InvalidInput("message must be at most 280 characters")
	}

	code, err := s.qrRepo.GetBySlug(ctx, input.Slug)
	if err != nil {
		return nil, fmt.Errorf("resolve qr code for tip: %w", err)
	}
	if !code.IsActive {
		return nil, apperrors.TipFailed("qr code is no longer active")
	}

	var customerID *string
	if input.CustomerID != "" {
		customerID = &input.CustomerID
	}

	now := time.Now().UTC()
	tip := &domain.Tip{
		ID:         uuid.New().String(),
		QRCodeID:   code.ID,
		ProviderID: code.ProviderID,
		CustomerID: customerID,
		Amount:     input.Amount,
		Currency:   code.Currency,
		Message:    input.Message,
		Status:     domain.TipSucceeded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.tipRepo.Create(ctx, tip); err != nil {
		return nil, fmt.Errorf("record tip: %w", err)
	}

	if err := s.accountRepo.AddBalance(ctx, code.ProviderID, tip.Amount); err != nil {
		// The tip row exists; log loudly rather than failing the customer.
		s.logger.ErrorContext(ctx, "failed to credit provider balance",
			slog.String("tip_id", tip.ID),
			slog.String("provider_id", code.ProviderID),
			slog.String("error", err.Error()),
		)
	}

	// Publish tip event (non-blocking on failure).
	if err := s.producer.PublishTipReceived(ctx, tip); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish tip.received event",
			slog.String("tip_id", tip.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tip recorded",
		slog.String("tip_id", tip.ID),
		slog.String("provider_id", code.ProviderID),
		slog.Int64("amount", tip.Amount),
	)

	return tip, nil
}

// ProviderDashboard aggregates the provider's tipping activity.
func (s *TipService) ProviderDashboard(ctx context.Context, providerID string) (*domain.ProviderDashboard, error) {
	dashboard, err := s.tipRepo.ProviderDashboard(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("provider dashboard: %w", err)
	}
	return dashboard, nil
}

// CustomerDashboard aggregates the customer's tipping activity.
func (s *TipService) CustomerDashboard(ctx context.Context, customerID string) (*domain.CustomerDashboard, error) {
	dashboard, err := s.tipRepo.CustomerDashboard(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("customer dashboard: %w", err)
	}
	return dashboard, nil
}

// ProviderTransactions returns the provider's tips, newest first.
func (s *TipService) ProviderTransactions(ctx context.Context, providerID string, params pagination.Params) (pagination.Result[domain.Tip], error) {
	params = params.Normalize()

	tips, total, err := s.tipRepo.ListByProviderID(ctx, providerID, params)
	if err != nil {
		return pagination.Result[domain.Tip]{}, fmt.Errorf("provider transactions: %w", err)
	}

	return pagination.NewResult(tips, int(total), params), nil
}

// CustomerTransactions returns the customer's tips, newest first.
func (s *TipService) CustomerTransactions(ctx context.Context, customerID string, params pagination.Params) (pagination.Result[domain.Tip], error) {
	params = params.Normalize()

	tips, total, err := s.tipRepo.ListByCustomerID(ctx, customerID, params)
	if err != nil {
		return pagination.Result[domain.Tip]{}, fmt.Errorf("customer transactions: %w", err)
	}

	return pagination.NewResult(tips, int(total), params), nil
}
