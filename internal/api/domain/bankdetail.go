package domain

import (
	"encoding/json"
	"time"
)

// BankDetail holds a provider's payout destination.
type BankDetail struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	BankName  string    `json:"bank_name"`
	Holder    string    `json:"holder"`
	IBAN      string    `json:"-"`
	Currency  string    `json:"currency"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaskedIBAN returns the IBAN with all but the country prefix and last four
// characters replaced by asterisks.
func (b *BankDetail) MaskedIBAN() string {
	if len(b.IBAN) <= 8 {
		return b.IBAN
	}
	masked := []byte(b.IBAN)
	for i := 4; i < len(masked)-4; i++ {
		masked[i] = '*'
	}
	return string(masked)
}

// MarshalJSON serializes the bank detail with the IBAN masked. The full IBAN
// never leaves the api in a response body.
func (b *BankDetail) MarshalJSON() ([]byte, error) {
	type alias BankDetail
	return json.Marshal(struct {
		*alias
		IBANMasked string `json:"iban_masked"`
	}{
		alias:      (*alias)(b),
		IBANMasked: b.MaskedIBAN(),
	})
}
