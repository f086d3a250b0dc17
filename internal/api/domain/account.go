package domain

import (
	"time"
)

// Account types. Providers collect tips through QR codes; customers pay them.
const (
	AccountProvider = "provider"
	AccountCustomer = "customer"
)

// ValidAccountTypes returns the list of recognized account types.
func ValidAccountTypes() []string {
	return []string{AccountProvider, AccountCustomer}
}

// IsValidAccountType reports whether t names a recognized account type.
func IsValidAccountType(t string) bool {
	return t == AccountProvider || t == AccountCustomer
}

// Account represents a registered provider or customer.
type Account struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone,omitempty"`
	Country       string    `json:"country,omitempty"`
	City          string    `json:"city,omitempty"`
	Balance       int64     `json:"balance"`
	Currency      string    `json:"currency"`
	IsActive      bool      `json:"is_active"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	OAuthSubject  string    `json:"oauth_subject,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RevokedToken records a token id that can no longer authenticate. Rows are
// checked on every authenticated action and pruned after the token would have
// expired anyway.
type RevokedToken struct {
	TokenID   string    `json:"token_id"`
	AccountID string    `json:"account_id"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
