package postgres

import (
	"context"
	"fmt"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/pkg/database"
)

// BankDetailRepository implements repository.BankDetailRepository using PostgreSQL.
type BankDetailRepository struct {
	pool database.DBTX
}

// NewBankDetailRepository creates a new PostgreSQL-backed bank detail repository.
func NewBankDetailRepository(pool database.DBTX) *BankDetailRepository {
	return &BankDetailRepository{pool: pool}
}

// Upsert inserts or replaces the bank detail for the account. An account has
// at most one default payout destination per currency.
func (r *BankDetailRepository) Upsert(ctx context.Context, b *domain.BankDetail) error {
	query := `
		INSERT INTO bank_details (id, account_id, bank_name, holder, iban, currency, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, currency) DO UPDATE
		SET bank_name = EXCLUDED.bank_name,
		    holder = EXCLUDED.holder,
		    iban = EXCLUDED.iban,
		    is_default = EXCLUDED.is_default,
		    updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.AccountID,
		b.BankName,
		b.Holder,
		b.IBAN,
		b.Currency,
		b.IsDefault,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert bank detail: %w", err)
	}

	return nil
}

// ListByAccountID returns all bank details for the given account.
func (r *BankDetailRepository) ListByAccountID(ctx context.Context, accountID string) ([]domain.BankDetail, error) {
	query := `
		SELECT id, account_id, bank_name, holder, iban, currency, is_default, created_at, updated_at
		FROM bank_details
		WHERE account_id = $1
		ORDER BY is_default DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list bank details: %w", err)
	}
	defer rows.Close()

	var details []domain.BankDetail
	for rows.Next() {
		var b domain.BankDetail
		if err := rows.Scan(
			&b.ID,
			&b.AccountID,
			&b.BankName,
			&b.Holder,
			&b.IBAN,
			&b.Currency,
			&b.IsDefault,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bank detail row: %w", err)
		}
		details = append(details, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bank detail rows: %w", err)
	}

	if details == nil {
		details = []domain.BankDetail{}
	}

	return details, nil
}
