package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/pkg/database"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
)

// QRCodeRepository implements repository.QRCodeRepository using PostgreSQL.
type QRCodeRepository struct {
	pool database.DBTX
}

// NewQRCodeRepository creates a new PostgreSQL-backed QR code repository.
func NewQRCodeRepository(pool database.DBTX) *QRCodeRepository {
	return &QRCodeRepository{pool: pool}
}

const qrCodeColumns = `id, provider_id, label, slug, suggested_amounts, currency, is_active, created_at, updated_at`

// Create inserts a new QR code into the database.
func (r *QRCodeRepository) Create(ctx context.Context, q *domain.QRCode) error {
	query := `
		INSERT INTO qr_codes (` + qrCodeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		q.ID,
		q.ProviderID,
		q.Label,
		q.Slug,
		q.SuggestedAmounts,
		q.Currency,
		q.IsActive,
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("qr code", "slug", q.Slug)
		}
		return fmt.Errorf("insert qr code: %w", err)
	}

	return nil
}

// GetByID retrieves a QR code by its ID.
func (r *QRCodeRepository) GetByID(ctx context.Context, id string) (*domain.QRCode, error) {
	query := `
		SELECT ` + qrCodeColumns + `
		FROM qr_codes
		WHERE id = $1`

	return r.scanQRCode(ctx, query, id)
}

// GetBySlug retrieves a QR code by its public slug.
func (r *QRCodeRepository) GetBySlug(ctx context.Context, slug string) (*domain.QRCode, error) {
	query := `
		SELECT ` + qrCodeColumns + `
		FROM qr_codes
		WHERE slug = $1`

	return r.scanQRCode(ctx, query, slug)
}

// ListByProviderID returns all QR codes owned by the provider.
func (r *QRCodeRepository) ListByProviderID(ctx context.Context, providerID string) ([]domain.QRCode, error) {
	query := `
		SELECT ` + qrCodeColumns + `
		FROM qr_codes
		WHERE provider_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}
	defer rows.Close()

	var codes []domain.QRCode
	for rows.Next() {
		var q domain.QRCode
		if err := rows.Scan(
			&q.ID,
			&q.ProviderID,
			&q.Label,
			&q.Slug,
			&q.SuggestedAmounts,
			&q.Currency,
			&q.IsActive,
			&q.CreatedAt,
			&q.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan qr code row: %w", err)
		}
		codes = append(codes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate qr code rows: %w", err)
	}

	if codes == nil {
		codes = []domain.QRCode{}
	}

	return codes, nil
}

// SetActive flips the active flag on a QR code owned by the provider. The
// provider id is part of the predicate so one provider cannot toggle
// another's codes.
func (r *QRCodeRepository) SetActive(ctx context.Context, id, providerID string, active bool) error {
	query := `UPDATE qr_codes SET is_active = $1, updated_at = $2 WHERE id = $3 AND provider_id = $4`

	ct, err := r.pool.Exec(ctx, query, active, time.Now().UTC(), id, providerID)
	if err != nil {
		return fmt.Errorf("set qr code active: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("qr code", id)
	}

	return nil
}

// scanQRCode executes a query expected to return a single QR code row.
func (r *QRCodeRepository) scanQRCode(ctx context.Context, query string, args ...any) (*domain.QRCode, error) {
	var q domain.QRCode

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&q.ID,
		&q.ProviderID,
		&q.Label,
		&q.Slug,
		&q.SuggestedAmounts,
		&q.Currency,
		&q.IsActive,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan qr code: %w", err)
	}

	return &q, nil
}
