package integration

import (
	"net/http"
	"testing"
)

// TestProviderTipFlow exercises the full provider lifecycle against a running
// api: register, save bank details, create a QR code, receive an anonymous
// tip through it, and see the tip on the dashboard and transaction list.
func TestProviderTipFlow(t *testing.T) {
	skipIfNotRunning(t, apiURL())

	email := uniqueEmail("provider")
	password := "Integration-pass-1"

	// Register a provider.
	status, body := postAction(t, "", "providerRegister", map[string]any{
		"email":      email,
		"password":   password,
		"first_name": "Flow",
		"last_name":  "Provider",
		"city":       "Ankara",
	})
	requireStatus(t, status, http.StatusCreated)
	token := extractString(t, body, "data.token")
	if got := extractString(t, body, "data.account.type"); got != "provider" {
		t.Fatalf("expected account type provider, got %q", got)
	}

	// Bank details are required before payouts; save a set.
	status, _ = postAction(t, token, "saveBankDetails", map[string]any{
		"bank_name": "Integration Bank",
		"holder":    "Flow Provider",
		"iban":      "TR330006100519786457841326",
		"currency":  "TRY",
	})
	requireStatus(t, status, http.StatusOK)

	// The masked IBAN must come back; the raw one must not.
	status, body = postAction(t, token, "getBankDetails", nil)
	requireStatus(t, status, http.StatusOK)
	details, ok := extractField(body, "data").([]any)
	if !ok || len(details) == 0 {
		t.Fatalf("expected a list of bank details, got %v", extractField(body, "data"))
	}
	first, _ := details[0].(map[string]any)
	masked, _ := first["iban_masked"].(string)
	if masked == "" || masked == "TR330006100519786457841326" {
		t.Fatalf("bank details response returned iban_masked %q", masked)
	}

	// Create a QR code and resolve it the way a scanning customer would.
	status, body = postAction(t, token, "createQrCode", map[string]any{
		"label":             "Front desk",
		"suggested_amounts": []int64{100, 200, 500},
		"currency":          "TRY",
	})
	requireStatus(t, status, http.StatusCreated)
	slug := extractString(t, body, "data.slug")
	payloadURL := extractString(t, body, "data.payload_url")
	if payloadURL == "" {
		t.Fatal("created qr code has no payload url")
	}

	status, body = postAction(t, "", "resolveQrCode", map[string]any{"slug": slug})
	requireStatus(t, status, http.StatusOK)
	if got := extractString(t, body, "data.label"); got != "Front desk" {
		t.Fatalf("resolved label = %q, want %q", got, "Front desk")
	}

	// Anonymous tip.
	status, body = postAction(t, "", "payTip", map[string]any{
		"slug":    slug,
		"amount":  250,
		"message": "keep the change",
	})
	requireStatus(t, status, http.StatusCreated)
	if got := extractFloat(t, body, "data.amount"); got != 250 {
		t.Fatalf("tip amount = %v, want 250", got)
	}
	if cust := extractField(body, "data.customer_id"); cust != nil {
		t.Fatalf("anonymous tip carries customer_id %v", cust)
	}

	// The dashboard and transaction list must reflect the tip.
	status, body = postAction(t, token, "getProviderDashboard", nil)
	requireStatus(t, status, http.StatusOK)
	if got := extractFloat(t, body, "data.total_received"); got < 250 {
		t.Fatalf("dashboard total_received = %v, want >= 250", got)
	}
	if got := extractFloat(t, body, "data.tip_count"); got < 1 {
		t.Fatalf("dashboard tip_count = %v, want >= 1", got)
	}

	status, body = postAction(t, token, "getProviderTransactions", map[string]any{
		"page": 1, "per_page": 10,
	})
	requireStatus(t, status, http.StatusOK)
	items, ok := extractField(body, "data.items").([]any)
	if !ok || len(items) == 0 {
		t.Fatalf("expected at least one transaction, got %v", extractField(body, "data.items"))
	}
}

// TestCustomerAttributedTip verifies that a logged-in customer's tip is
// attributed to them and shows up on their own dashboard.
func TestCustomerAttributedTip(t *testing.T) {
	skipIfNotRunning(t, apiURL())

	// Provider with a QR code to tip against.
	status, body := postAction(t, "", "providerRegister", map[string]any{
		"email":      uniqueEmail("provider"),
		"password":   "Integration-pass-1",
		"first_name": "Tipped",
		"last_name":  "Provider",
	})
	requireStatus(t, status, http.StatusCreated)
	providerToken := extractString(t, body, "data.token")

	status, body = postAction(t, providerToken, "createQrCode", map[string]any{
		"label": "Terrace",
	})
	requireStatus(t, status, http.StatusCreated)
	slug := extractString(t, body, "data.slug")

	// Customer registers and tips with their token attached.
	status, body = postAction(t, "", "customerRegister", map[string]any{
		"email":      uniqueEmail("customer"),
		"password":   "Integration-pass-1",
		"first_name": "Gen",
		"last_name":  "Erous",
	})
	requireStatus(t, status, http.StatusCreated)
	customerToken := extractString(t, body, "data.token")
	customerID := extractString(t, body, "data.account.id")

	status, body = postAction(t, customerToken, "payTip", map[string]any{
		"slug":   slug,
		"amount": 500,
	})
	requireStatus(t, status, http.StatusCreated)
	if got := extractString(t, body, "data.customer_id"); got != customerID {
		t.Fatalf("tip customer_id = %q, want %q", got, customerID)
	}

	status, body = postAction(t, customerToken, "getCustomerDashboard", nil)
	requireStatus(t, status, http.StatusOK)
	if got := extractFloat(t, body, "data.total_tipped"); got < 500 {
		t.Fatalf("customer total_tipped = %v, want >= 500", got)
	}
}

// TestLogoutRevokesToken verifies that a token stops working after logout and
// that the failure is the revoked-token kind, not the invalid-token kind.
func TestLogoutRevokesToken(t *testing.T) {
	skipIfNotRunning(t, apiURL())

	status, body := postAction(t, "", "providerRegister", map[string]any{
		"email":      uniqueEmail("provider"),
		"password":   "Integration-pass-1",
		"first_name": "Short",
		"last_name":  "Lived",
	})
	requireStatus(t, status, http.StatusCreated)
	token := extractString(t, body, "data.token")

	status, _ = postAction(t, token, "logout", nil)
	requireStatus(t, status, http.StatusOK)

	status, body = postAction(t, token, "getProfile", nil)
	requireStatus(t, status, http.StatusForbidden)
	errs, ok := extractField(body, "errors").([]any)
	if !ok || len(errs) == 0 || errs[0] != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN error code, got %v", extractField(body, "errors"))
	}
}

// TestAudienceSeparation verifies a customer token cannot call provider-only
// actions.
func TestAudienceSeparation(t *testing.T) {
	skipIfNotRunning(t, apiURL())

	status, body := postAction(t, "", "customerRegister", map[string]any{
		"email":      uniqueEmail("customer"),
		"password":   "Integration-pass-1",
		"first_name": "Wrong",
		"last_name":  "Door",
	})
	requireStatus(t, status, http.StatusCreated)
	token := extractString(t, body, "data.token")

	status, _ = postAction(t, token, "getProviderDashboard", nil)
	requireStatus(t, status, http.StatusForbidden)

	status, _ = postAction(t, token, "createQrCode", map[string]any{"label": "Nope"})
	requireStatus(t, status, http.StatusForbidden)
}
