package postgres

import (
	"context"
	"fmt"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/pkg/database"
	"github.com/abdullah0035/itip-sub000/pkg/pagination"
)

// TipRepository implements repository.TipRepository using PostgreSQL.
type TipRepository struct {
	pool database.DBTX
}

// NewTipRepository creates a new PostgreSQL-backed tip repository.
func NewTipRepository(pool database.DBTX) *TipRepository {
	return &TipRepository{pool: pool}
}

const tipColumns = `id, qr_code_id, provider_id, customer_id, amount, currency, message, status, created_at, updated_at`

// Create inserts a new tip into the database.
func (r *TipRepository) Create(ctx context.Context, t *domain.Tip) error {
	query := `
		INSERT INTO tips (` + tipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		t.ID,
		t.QRCodeID,
		t.ProviderID,
		t.CustomerID,
		t.Amount,
		t.Currency,
		t.Message,
		t.Status,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tip: %w", err)
	}

	return nil
}

// ListByProviderID returns the provider's tips, newest first.
func (r *TipRepository) ListByProviderID(ctx context.Context, providerID string, p pagination.Params) ([]domain.Tip, int64, error) {
	return r.list(ctx, "provider_id", providerID, p)
}

// ListByCustomerID returns the customer's tips, newest first.
func (r *TipRepository) ListByCustomerID(ctx context.Context, customerID string, p pagination.Params) ([]domain.Tip, int64, error) {
	return r.list(ctx, "customer_id", customerID, p)
}

func (r *TipRepository) list(ctx context.Context, column, id string, p pagination.Params) ([]domain.Tip, int64, error) {
	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tips WHERE %s = $1`, column)
	if err := r.pool.QueryRow(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tips: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+tipColumns+`
		FROM tips
		WHERE %s = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, column)

	rows, err := r.pool.Query(ctx, query, id, p.PerPage, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tips: %w", err)
	}
	defer rows.Close()

	var tips []domain.Tip
	for rows.Next() {
		var t domain.Tip
		if err := rows.Scan(
			&t.ID,
			&t.QRCodeID,
			&t.ProviderID,
			&t.CustomerID,
			&t.Amount,
			&t.Currency,
			&t.Message,
			&t.Status,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan tip row: %w", err)
		}
		tips = append(tips, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tip rows: %w", err)
	}

	if tips == nil {
		tips = []domain.Tip{}
	}

	return tips, total, nil
}

// ProviderDashboard aggregates the provider's tipping activity in one query
// plus a QR code count.
func (r *TipRepository) ProviderDashboard(ctx context.Context, providerID string) (*domain.ProviderDashboard, error) {
	var d domain.ProviderDashboard

	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'succeeded'), 0),
			COUNT(*) FILTER (WHERE status = 'succeeded'),
			COUNT(*) FILTER (WHERE status = 'succeeded' AND created_at >= date_trunc('day', now())),
			COALESCE(SUM(amount) FILTER (WHERE status = 'succeeded' AND created_at >= date_trunc('day', now())), 0)
		FROM tips
		WHERE provider_id = $1`, providerID,
	).Scan(&d.TotalReceived, &d.TipCount, &d.TipsToday, &d.AmountToday)
	if err != nil {
		return nil, fmt.Errorf("aggregate provider tips: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM qr_codes WHERE provider_id = $1 AND is_active = true`, providerID,
	).Scan(&d.ActiveQRCodes)
	if err != nil {
		return nil, fmt.Errorf("count active qr codes: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1`, providerID,
	).Scan(&d.Balance)
	if err != nil {
		return nil, fmt.Errorf("read provider balance: %w", err)
	}

	return &d, nil
}

// CustomerDashboard aggregates the customer's tipping activity.
func (r *TipRepository) CustomerDashboard(ctx context.Context, customerID string) (*domain.CustomerDashboard, error) {
	var d domain.CustomerDashboard

	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'succeeded'), 0),
			COUNT(*) FILTER (WHERE status = 'succeeded'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'succeeded' AND created_at >= date_trunc('day', now())), 0)
		FROM tips
		WHERE customer_id = $1`, customerID,
	).Scan(&d.TotalTipped, &d.TipCount, &d.AmountToday)
	if err != nil {
		return nil, fmt.Errorf("aggregate customer tips: %w", err)
	}

	return &d, nil
}
