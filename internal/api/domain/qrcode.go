package domain

import (
	"time"
)

// QRCode is a provider's tipping point. The slug is the public handle a
// customer lands on after scanning; the image itself is rendered elsewhere.
type QRCode struct {
	ID               string    `json:"id"`
	ProviderID       string    `json:"provider_id"`
	Label            string    `json:"label"`
	Slug             string    `json:"slug"`
	SuggestedAmounts []int64   `json:"suggested_amounts,omitempty"`
	Currency         string    `json:"currency"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PayloadURL returns the URL encoded into the printed QR image.
func (q *QRCode) PayloadURL(baseURL string) string {
	return baseURL + "/t/" + q.Slug
}
