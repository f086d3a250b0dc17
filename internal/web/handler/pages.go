package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/httputil"
	"github.com/abdullah0035/itip-sub000/pkg/obscure"
)

// --- Provider pages ---

func (h *Handler) ProviderDashboard(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "dashboard", "getProviderDashboard", nil)
}

func (h *Handler) QRCodes(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "qr-codes", "listQrCodes", nil)
}

type createQRCodeRequest struct {
	Label            string  `json:"label"`
	SuggestedAmounts []int64 `json:"suggested_amounts"`
	Currency         string  `json:"currency"`
}

func (h *Handler) CreateQRCode(w http.ResponseWriter, r *http.Request) {
	var req createQRCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed request"), h.logger)
		return
	}

	_, client := h.bind(w, r)
	env, err := client.Post(r.Context(), "createQrCode", req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, View{Page: "qr-codes", Data: env.Data})
}

func (h *Handler) SetQRCodeActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed request"), h.logger)
		return
	}

	_, client := h.bind(w, r)
	env, err := client.Put(r.Context(), "setQrCodeActive", map[string]any{
		"id":     chi.URLParam(r, "id"),
		"active": req.Active,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, View{Page: "qr-codes", Data: env.Data})
}

func (h *Handler) ProviderTransactions(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "transactions", "getProviderTransactions", pageParams(r))
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "profile", "getProfile", nil)
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	City      *string `json:"city,omitempty"`
}

// UpdateProfile forwards the edit and refreshes the encoded profile held in
// the session so subsequent renders see the new values.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed request"), h.logger)
		return
	}

	state, client := h.bind(w, r)
	env, err := client.Put(r.Context(), "updateProfile", req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if encProfile, encErr := obscure.Encode(env.Data); encErr == nil {
		state.SetProfile(encProfile)
	}

	writeJSON(w, http.StatusOK, View{Page: "profile", Data: env.Data})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed request"), h.logger)
		return
	}

	_, client := h.bind(w, r)
	env, err := client.Post(r.Context(), "changePassword", req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, View{Page: "profile", Data: env.Data})
}

func (h *Handler) BankDetails(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "bank-details", "getBankDetails", nil)
}

type saveBankDetailsRequest struct {
	BankName string `json:"bank_name"`
	Holder   string `json:"holder"`
	IBAN     string `json:"iban"`
	Currency string `json:"currency"`
}

func (h *Handler) SaveBankDetails(w http.ResponseWriter, r *http.Request) {
	var req saveBankDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed request"), h.logger)
		return
	}

	_, client := h.bind(w, r)
	env, err := client.Post(r.Context(), "saveBankDetails", req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, View{Page: "bank-details", Data: env.Data})
}

// --- Customer pages ---

func (h *Handler) CustomerDashboard(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "customer-dashboard", "getCustomerDashboard", nil)
}

func (h *Handler) CustomerTransactions(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "customer-transactions", "getCustomerTransactions", pageParams(r))
}

func (h *Handler) CustomerProfile(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "customer-profile", "getProfile", nil)
}

// --- Public tip pages ---

// TipPage resolves a QR slug into the public tipping view. No session
// required; a scanned code must work for anyone.
func (h *Handler) TipPage(w http.ResponseWriter, r *http.Request) {
	h.apiView(w, r, "tip", "resolveQrCode", map[string]string{
		"slug": chi.URLParam(r, "slug"),
	})
}

type payTipRequest struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

func (h *Handler) PayTip(w http.ResponseWriter, r *http.Request) {
	var req payTipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed request"), h.logger)
		return
	}

	_, client := h.bind(w, r)
	env, err := client.Post(r.Context(), "payTip", map[string]any{
		"slug":    chi.URLParam(r, "slug"),
		"amount":  req.Amount,
		"message": req.Message,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, View{Page: "tip", Data: env.Data})
}

// pageParams reads pagination from the query string for list pages.
func pageParams(r *http.Request) map[string]int {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return map[string]int{"page": page, "per_page": perPage}
}
