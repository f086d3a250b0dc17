package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/pagination"
)

func activeQRCode() *domain.QRCode {
	now := time.Now().UTC()
	return &domain.QRCode{
		ID:         "qr-1",
		ProviderID: "acc-1",
		Label:      "Table 12",
		Slug:       "table-12-a1b2c3d4",
		Currency:   "TRY",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestTipService(
	tipRepo *mockTipRepository,
	qrRepo *mockQRCodeRepository,
	accountRepo *mockAccountRepository,
	producer *mockPublisher,
) *TipService {
	return NewTipService(tipRepo, qrRepo, accountRepo, producer, newTestLogger())
}

// --- PayTip ---

func TestPayTip_Success(t *testing.T) {
	tipRepo := new(mockTipRepository)
	qrRepo := new(mockQRCodeRepository)
	accountRepo := new(mockAccountRepository)
	producer := new(mockPublisher)
	svc := newTestTipService(tipRepo, qrRepo, accountRepo, producer)
	ctx := context.Background()

	code := activeQRCode()
	qrRepo.On("GetBySlug", ctx, code.Slug).Return(code, nil)
	tipRepo.On("Create", ctx, mock.AnythingOfType("*domain.Tip")).Return(nil)
	accountRepo.On("AddBalance", ctx, code.ProviderID, int64(2500)).Return(nil)
	producer.On("PublishTipReceived", ctx, mock.AnythingOfType("*domain.Tip")).Return(nil)

	tip, err := svc.PayTip(ctx, PayTipInput{
		Slug:       code.Slug,
		Amount:     2500,
		Message:    "great service",
		CustomerID: "acc-cust-1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TipSucceeded, tip.Status)
	assert.Equal(t, code.ProviderID, tip.ProviderID)
	assert.Equal(t, "TRY", tip.Currency, "currency comes from the qr code")
	require.NotNil(t, tip.CustomerID)
	assert.Equal(t, "acc-cust-1", *tip.CustomerID)

	tipRepo.AssertExpectations(t)
	accountRepo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestPayTip_Anonymous(t *testing.T) {
	tipRepo := new(mockTipRepository)
	qrRepo := new(mockQRCodeRepository)
	accountRepo := new(mockAccountRepository)
	producer := new(mockPublisher)
	svc := newTestTipService(tipRepo, qrRepo, accountRepo, producer)
	ctx := context.Background()

	code := activeQRCode()
	qrRepo.On("GetBySlug", ctx, code.Slug).Return(code, nil)
	tipRepo.On("Create", ctx, mock.AnythingOfType("*domain.Tip")).Return(nil)
	accountRepo.On("AddBalance", ctx, code.ProviderID, int64(1000)).Return(nil)
	producer.On("PublishTipReceived", ctx, mock.AnythingOfType("*domain.Tip")).Return(nil)

	tip, err := svc.PayTip(ctx, PayTipInput{Slug: code.Slug, Amount: 1000})

	require.NoError(t, err)
	assert.Nil(t, tip.CustomerID)
}

func TestPayTip_InactiveCode(t *testing.T) {
	qrRepo := new(mockQRCodeRepository)
	svc := newTestTipService(new(mockTipRepository), qrRepo, new(mockAccountRepository), new(mockPublisher))
	ctx := context.Background()

	code := activeQRCode()
	code.IsActive = false
	qrRepo.On("GetBySlug", ctx, code.Slug).Return(code, nil)

	_, err := svc.PayTip(ctx, PayTipInput{Slug: code.Slug, Amount: 1000})
	assert.True(t, errors.Is(err, apperrors.ErrTipFailed))
}

func TestPayTip_InvalidAmounts(t *testing.T) {
	svc := newTestTipService(new(mockTipRepository), new(mockQRCodeRepository),
		new(mockAccountRepository), new(mockPublisher))
	ctx := context.Background()

	_, err := svc.PayTip(ctx, PayTipInput{Slug: "s", Amount: 0})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.PayTip(ctx, PayTipInput{Slug: "s", Amount: -500})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.PayTip(ctx, PayTipInput{Slug: "s", Amount: maxTipAmount + 1})
	assert.True(t, errors.Is(err, apperrors.ErrTipFailed))
}

func TestPayTip_UnknownSlug(t *testing.T) {
	qrRepo := new(mockQRCodeRepository)
	svc := newTestTipService(new(mockTipRepository), qrRepo, new(mockAccountRepository), new(mockPublisher))
	ctx := context.Background()

	qrRepo.On("GetBySlug", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	_, err := svc.PayTip(ctx, PayTipInput{Slug: "missing", Amount: 1000})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestPayTip_BalanceCreditFailureStillRecordsTip(t *testing.T) {
	tipRepo := new(mockTipRepository)
	qrRepo := new(mockQRCodeRepository)
	accountRepo := new(mockAccountRepository)
	producer := new(mockPublisher)
	svc := newTestTipService(tipRepo, qrRepo, accountRepo, producer)
	ctx := context.Background()

	code := activeQRCode()
	qrRepo.On("GetBySlug", ctx, code.Slug).Return(code, nil)
	tipRepo.On("Create", ctx, mock.AnythingOfType("*domain.Tip")).Return(nil)
	accountRepo.On("AddBalance", ctx, code.ProviderID, int64(1000)).
		Return(errors.New("deadlock"))
	producer.On("PublishTipReceived", ctx, mock.AnythingOfType("*domain.Tip")).Return(nil)

	tip, err := svc.PayTip(ctx, PayTipInput{Slug: code.Slug, Amount: 1000})
	require.NoError(t, err)
	assert.Equal(t, domain.TipSucceeded, tip.Status)
}

// --- Dashboards and transactions ---

func TestProviderTransactions_NormalizesParams(t *testing.T) {
	tipRepo := new(mockTipRepository)
	svc := newTestTipService(tipRepo, new(mockQRCodeRepository),
		new(mockAccountRepository), new(mockPublisher))
	ctx := context.Background()

	expected := pagination.Params{Page: 1, PerPage: 20}.Normalize()
	tipRepo.On("ListByProviderID", ctx, "acc-1", expected).
		Return([]domain.Tip{}, int64(0), nil)

	result, err := svc.ProviderTransactions(ctx, "acc-1", pagination.Params{Page: 0, PerPage: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PerPage)
	assert.NotNil(t, result.Items)
	tipRepo.AssertExpectations(t)
}

func TestCustomerDashboard(t *testing.T) {
	tipRepo := new(mockTipRepository)
	svc := newTestTipService(tipRepo, new(mockQRCodeRepository),
		new(mockAccountRepository), new(mockPublisher))
	ctx := context.Background()

	tipRepo.On("CustomerDashboard", ctx, "acc-cust-1").Return(&domain.CustomerDashboard{
		TotalTipped: 7500,
		TipCount:    3,
		AmountToday: 2500,
	}, nil)

	d, err := svc.CustomerDashboard(ctx, "acc-cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7500), d.TotalTipped)
}

// --- QR code service ---

func TestQRCodeService_Create(t *testing.T) {
	qrRepo := new(mockQRCodeRepository)
	svc := NewQRCodeService(qrRepo, new(mockAccountRepository), "https://itip.example.com", newTestLogger())
	ctx := context.Background()

	qrRepo.On("Create", ctx, mock.AnythingOfType("*domain.QRCode")).Return(nil)

	view, err := svc.Create(ctx, "acc-1", CreateQRCodeInput{
		Label:            "Table 12",
		SuggestedAmounts: []int64{1000, 2500, 5000},
	})

	require.NoError(t, err)
	assert.Contains(t, view.Slug, "table-12-")
	assert.Contains(t, view.PayloadURL, "https://itip.example.com/t/")
	assert.True(t, view.IsActive)
	assert.Equal(t, "TRY", view.Currency)
}

func TestQRCodeService_Create_RejectsBadAmounts(t *testing.T) {
	svc := NewQRCodeService(new(mockQRCodeRepository), new(mockAccountRepository), "", newTestLogger())

	_, err := svc.Create(context.Background(), "acc-1", CreateQRCodeInput{
		Label:            "Table 12",
		SuggestedAmounts: []int64{1000, -5},
	})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestQRCodeService_Resolve_InactiveIsNotFound(t *testing.T) {
	qrRepo := new(mockQRCodeRepository)
	svc := NewQRCodeService(qrRepo, new(mockAccountRepository), "", newTestLogger())
	ctx := context.Background()

	code := activeQRCode()
	code.IsActive = false
	qrRepo.On("GetBySlug", ctx, code.Slug).Return(code, nil)

	_, err := svc.Resolve(ctx, code.Slug)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestQRCodeService_Resolve_PublicView(t *testing.T) {
	qrRepo := new(mockQRCodeRepository)
	accountRepo := new(mockAccountRepository)
	svc := NewQRCodeService(qrRepo, accountRepo, "", newTestLogger())
	ctx := context.Background()

	code := activeQRCode()
	code.SuggestedAmounts = []int64{1000, 2500}
	qrRepo.On("GetBySlug", ctx, code.Slug).Return(code, nil)
	accountRepo.On("GetByID", ctx, code.ProviderID).Return(&domain.Account{
		ID:        code.ProviderID,
		FirstName: "Ali",
		LastName:  "Yilmaz",
	}, nil)

	resolved, err := svc.Resolve(ctx, code.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Ali Yilmaz", resolved.ProviderName)
	assert.Equal(t, []int64{1000, 2500}, resolved.SuggestedAmounts)
}
