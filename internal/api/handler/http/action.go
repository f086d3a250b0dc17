package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/abdullah0035/itip-sub000/internal/api/auth"
	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	"github.com/abdullah0035/itip-sub000/internal/api/service"
	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/httputil"
	"github.com/abdullah0035/itip-sub000/pkg/logger"
	"github.com/abdullah0035/itip-sub000/pkg/middleware"
	"github.com/abdullah0035/itip-sub000/pkg/pagination"
	"github.com/abdullah0035/itip-sub000/pkg/validator"
)

// AuthTokenHeader carries the session credential on authenticated actions.
const AuthTokenHeader = "X-Auth-Token"

// Action names multiplexed over the single endpoint.
const (
	ActionProviderRegister        = "providerRegister"
	ActionCustomerRegister        = "customerRegister"
	ActionProviderLogin           = "providerLogin"
	ActionCustomerLogin           = "customerLogin"
	ActionSocialLogin             = "socialLogin"
	ActionChangePassword          = "changePassword"
	ActionLogout                  = "logout"
	ActionGetProfile              = "getProfile"
	ActionUpdateProfile           = "updateProfile"
	ActionGetBankDetails          = "getBankDetails"
	ActionSaveBankDetails         = "saveBankDetails"
	ActionCreateQrCode            = "createQrCode"
	ActionListQrCodes             = "listQrCodes"
	ActionSetQrCodeActive         = "setQrCodeActive"
	ActionResolveQrCode           = "resolveQrCode"
	ActionPayTip                  = "payTip"
	ActionGetProviderDashboard    = "getProviderDashboard"
	ActionGetCustomerDashboard    = "getCustomerDashboard"
	ActionGetProviderTransactions = "getProviderTransactions"
	ActionGetCustomerTransactions = "getCustomerTransactions"
)

// maxBodyBytes caps an action request body at 64 KB.
const maxBodyBytes = 64 << 10

// ActionHandler dispatches the multiplexed action endpoint.
type ActionHandler struct {
	accounts *service.AccountService
	qrCodes  *service.QRCodeService
	tips     *service.TipService
	throttle *ipLimiter
	logger   *slog.Logger
}

// NewActionHandler creates the handler for POST /api/v1/action.
func NewActionHandler(
	accounts *service.AccountService,
	qrCodes *service.QRCodeService,
	tips *service.TipService,
	loginRateLimit float64,
	loginRateBurst int,
	logger *slog.Logger,
) *ActionHandler {
	return &ActionHandler{
		accounts: accounts,
		qrCodes:  qrCodes,
		tips:     tips,
		throttle: newIPLimiter(loginRateLimit, loginRateBurst),
		logger:   logger,
	}
}

// authActions are throttled per IP; each attempt carries a credential guess.
var authActions = map[string]bool{
	ActionProviderRegister: true,
	ActionCustomerRegister: true,
	ActionProviderLogin:    true,
	ActionCustomerLogin:    true,
	ActionSocialLogin:      true,
}

// publicActions run without a token.
var publicActions = map[string]bool{
	ActionProviderRegister: true,
	ActionCustomerRegister: true,
	ActionProviderLogin:    true,
	ActionCustomerLogin:    true,
	ActionSocialLogin:      true,
	ActionResolveQrCode:    true,
	ActionPayTip:           true,
}

// providerOnly actions require a provider token; customerOnly a customer one.
var providerOnly = map[string]bool{
	ActionGetBankDetails:          true,
	ActionSaveBankDetails:         true,
	ActionCreateQrCode:            true,
	ActionListQrCodes:             true,
	ActionSetQrCodeActive:         true,
	ActionGetProviderDashboard:    true,
	ActionGetProviderTransactions: true,
}

var customerOnly = map[string]bool{
	ActionGetCustomerDashboard:    true,
	ActionGetCustomerTransactions: true,
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Handle serves POST /api/v1/action.
func (h *ActionHandler) Handle(rw http.ResponseWriter, r *http.Request) {
	w := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("unreadable request body"), h.logger)
		return
	}

	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &head); err != nil || head.Action == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("missing or malformed action"), h.logger)
		return
	}
	action := head.Action

	defer func() {
		middleware.ObserveAction(action, w.status)
	}()

	if authActions[action] && !h.throttle.Allow(clientIP(r)) {
		httputil.WriteError(w, r, apperrors.RateLimited("too many authentication attempts"), h.logger)
		return
	}

	var claims *auth.Claims
	if !publicActions[action] {
		claims, err = h.accounts.Authenticate(r.Context(), r.Header.Get(AuthTokenHeader))
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}

		if providerOnly[action] && claims.AccountType != domain.AccountProvider {
			httputil.WriteError(w, r, apperrors.Forbidden("provider account required"), h.logger)
			return
		}
		if customerOnly[action] && claims.AccountType != domain.AccountCustomer {
			httputil.WriteError(w, r, apperrors.Forbidden("customer account required"), h.logger)
			return
		}

		ctx := logger.WithAccountID(r.Context(), claims.AccountID)
		r = r.WithContext(ctx)
	}

	h.dispatch(w, r, action, body, claims)
}

func (h *ActionHandler) dispatch(w http.ResponseWriter, r *http.Request, action string, body []byte, claims *auth.Claims) {
	switch action {
	case ActionProviderRegister:
		h.register(w, r, body, domain.AccountProvider)
	case ActionCustomerRegister:
		h.register(w, r, body, domain.AccountCustomer)
	case ActionProviderLogin:
		h.login(w, r, body, domain.AccountProvider)
	case ActionCustomerLogin:
		h.login(w, r, body, domain.AccountCustomer)
	case ActionSocialLogin:
		h.socialLogin(w, r, body)
	case ActionChangePassword:
		h.changePassword(w, r, body, claims)
	case ActionLogout:
		h.logout(w, r, claims)
	case ActionGetProfile:
		h.getProfile(w, r, claims)
	case ActionUpdateProfile:
		h.updateProfile(w, r, body, claims)
	case ActionGetBankDetails:
		h.getBankDetails(w, r, claims)
	case ActionSaveBankDetails:
		h.saveBankDetails(w, r, body, claims)
	case ActionCreateQrCode:
		h.createQrCode(w, r, body, claims)
	case ActionListQrCodes:
		h.listQrCodes(w, r, claims)
	case ActionSetQrCodeActive:
		h.setQrCodeActive(w, r, body, claims)
	case ActionResolveQrCode:
		h.resolveQrCode(w, r, body)
	case ActionPayTip:
		h.payTip(w, r, body)
	case ActionGetProviderDashboard:
		h.providerDashboard(w, r, claims)
	case ActionGetCustomerDashboard:
		h.customerDashboard(w, r, claims)
	case ActionGetProviderTransactions:
		h.providerTransactions(w, r, body, claims)
	case ActionGetCustomerTransactions:
		h.customerTransactions(w, r, body, claims)
	default:
		httputil.WriteError(w, r, apperrors.NotFound("action", action), h.logger)
	}
}

// --- Request DTOs ---

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Currency  string `json:"currency" validate:"omitempty,len=3"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type socialLoginRequest struct {
	AccountType string `json:"account_type" validate:"required,oneof=provider customer"`
	Provider    string `json:"provider" validate:"required,oneof=google facebook"`
	Token       string `json:"token" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	City      *string `json:"city"`
}

type saveBankDetailsRequest struct {
	BankName string `json:"bank_name" validate:"required"`
	Holder   string `json:"holder" validate:"required"`
	IBAN     string `json:"iban" validate:"required,iban"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

type createQrCodeRequest struct {
	Label            string  `json:"label" validate:"required,max=80"`
	SuggestedAmounts []int64 `json:"suggested_amounts" validate:"omitempty,max=6,dive,gt=0"`
	Currency         string  `json:"currency" validate:"omitempty,len=3"`
}

type setQrCodeActiveRequest struct {
	ID     string `json:"id" validate:"required"`
	Active bool   `json:"active"`
}

type resolveQrCodeRequest struct {
	Slug string `json:"slug" validate:"required"`
}

type payTipRequest struct {
	Slug    string `json:"slug" validate:"required"`
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	Message string `json:"message" validate:"max=280"`
}

type transactionsRequest struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// decode unmarshals and validates an action payload.
func decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.InvalidInput("malformed payload")
	}
	return validator.Validate(dst)
}

// writeValidated writes the error as a validation envelope when applicable.
func (h *ActionHandler) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// --- Action handlers ---

func (h *ActionHandler) register(w http.ResponseWriter, r *http.Request, body []byte, accountType string) {
	var req registerRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	result, err := h.accounts.Register(r.Context(), service.RegisterInput{
		AccountType: accountType,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		Currency:    req.Currency,
		ClientIP:    clientIP(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, authPayload(result))
}

func (h *ActionHandler) login(w http.ResponseWriter, r *http.Request, body []byte, accountType string) {
	var req loginRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), service.LoginInput{
		AccountType: accountType,
		Email:       req.Email,
		Password:    req.Password,
		ClientIP:    clientIP(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, authPayload(result))
}

func (h *ActionHandler) socialLogin(w http.ResponseWriter, r *http.Request, body []byte) {
	var req socialLoginRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	result, err := h.accounts.SocialLogin(r.Context(), service.SocialLoginInput{
		AccountType: req.AccountType,
		Provider:    req.Provider,
		Token:       req.Token,
		ClientIP:    clientIP(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, authPayload(result))
}

func (h *ActionHandler) changePassword(w http.ResponseWriter, r *http.Request, body []byte, claims *auth.Claims) {
	var req changePasswordRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), claims.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]bool{"changed": true})
}

func (h *ActionHandler) logout(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if err := h.accounts.Logout(r.Context(), claims); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *ActionHandler) getProfile(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	account, err := h.accounts.GetProfile(r.Context(), claims.AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, account)
}

func (h *ActionHandler) updateProfile(w http.ResponseWriter, r *http.Request, body []byte, claims *auth.Claims) {
	var req updateProfileRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	account, err := h.accounts.UpdateProfile(r.Context(), claims.AccountID, service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		City:      req.City,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, account)
}

func (h *ActionHandler) getBankDetails(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	details, err := h.accounts.GetBankDetails(r.Context(), claims.AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, details)
}

func (h *ActionHandler) saveBankDetails(w http.ResponseWriter, r *http.Request, body []byte, claims *auth.Claims) {
	var req saveBankDetailsRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	detail, err := h.accounts.SaveBankDetails(r.Context(), claims.AccountID, service.SaveBankDetailsInput{
		BankName: req.BankName,
		Holder:   req.Holder,
		IBAN:     req.IBAN,
		Currency: req.Currency,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, detail)
}

func (h *ActionHandler) createQrCode(w http.ResponseWriter, r *http.Request, body []byte, claims *auth.Claims) {
	var req createQrCodeRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	view, err := h.qrCodes.Create(r.Context(), claims.AccountID, service.CreateQRCodeInput{
		Label:            req.Label,
		SuggestedAmounts: req.SuggestedAmounts,
		Currency:         req.Currency,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, view)
}

func (h *ActionHandler) listQrCodes(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	views, err := h.qrCodes.List(r.Context(), claims.AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, views)
}

func (h *ActionHandler) setQrCodeActive(w http.ResponseWriter, r *http.Request, body []byte, claims *auth.Claims) {
	var req setQrCodeActiveRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	if err := h.qrCodes.SetActive(r.Context(), req.ID, claims.AccountID, req.Active); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]bool{"active": req.Active})
}

func (h *ActionHandler) resolveQrCode(w http.ResponseWriter, r *http.Request, body []byte) {
	var req resolveQrCodeRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	resolved, err := h.qrCodes.Resolve(r.Context(), req.Slug)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, resolved)
}

func (h *ActionHandler) payTip(w http.ResponseWriter, r *http.Request, body []byte) {
	var req payTipRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	// Tips are public via slug, but a logged-in customer gets attribution.
	customerID := ""
	if token := r.Header.Get(AuthTokenHeader); token != "" {
		if claims, err := h.accounts.Authenticate(r.Context(), token); err == nil &&
			claims.AccountType == domain.AccountCustomer {
			customerID = claims.AccountID
		}
	}

	tip, err := h.tips.PayTip(r.Context(), service.PayTipInput{
		Slug:       req.Slug,
		Amount:     req.Amount,
		Message:    req.Message,
		CustomerID: customerID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, tip)
}

func (h *ActionHandler) providerDashboard(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	dashboard, err := h.tips.ProviderDashboard(r.Context(), claims.AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, dashboard)
}

func (h *ActionHandler) customerDashboard(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	dashboard, err := h.tips.CustomerDashboard(r.Context(), claims.AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, dashboard)
}

func (h *ActionHandler) providerTransactions(w http.ResponseWriter, r *http.Request, body []byte, claims *auth.Claims) {
	var req transactionsRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	result, err := h.tips.ProviderTransactions(r.Context(), claims.AccountID, pagination.Params{
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, result)
}

func (h *ActionHandler) customerTransactions(w http.ResponseWriter, r *http.Request, body []byte, claims *auth.Claims) {
	var req transactionsRequest
	if err := decode(body, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	result, err := h.tips.CustomerTransactions(r.Context(), claims.AccountID, pagination.Params{
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, result)
}

// authPayload shapes the auth response: the token plus the profile the web
// tier stores in one atomic login step.
func authPayload(result *service.AuthResult) map[string]any {
	return map[string]any{
		"token":   result.Token,
		"account": result.Account,
	}
}
