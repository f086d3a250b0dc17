package domain

import (
	"time"
)

// Tip statuses.
const (
	TipPending   = "pending"
	TipSucceeded = "succeeded"
	TipFailed    = "failed"
)

// Tip is a single payment from a customer to a provider through a QR code.
// Amounts are in minor units of the currency. CustomerID is nil for anonymous
// tips paid without an account.
type Tip struct {
	ID         string    `json:"id"`
	QRCodeID   string    `json:"qr_code_id"`
	ProviderID string    `json:"provider_id"`
	CustomerID *string   `json:"customer_id,omitempty"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProviderDashboard aggregates a provider's tipping activity.
type ProviderDashboard struct {
	Balance       int64 `json:"balance"`
	TotalReceived int64 `json:"total_received"`
	TipCount      int64 `json:"tip_count"`
	TipsToday     int64 `json:"tips_today"`
	AmountToday   int64 `json:"amount_today"`
	ActiveQRCodes int64 `json:"active_qr_codes"`
}

// CustomerDashboard aggregates a customer's tipping activity.
type CustomerDashboard struct {
	TotalTipped int64 `json:"total_tipped"`
	TipCount    int64 `json:"tip_count"`
	AmountToday int64 `json:"amount_today"`
}
