package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/logger"
	"github.com/abdullah0035/itip-sub000/pkg/validator"
)

// Envelope status values. Every response from the action endpoint carries
// exactly one of these, so clients can narrow the envelope as a tagged union
// instead of probing optional fields.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the JSON response envelope used by the action endpoint.
// Success responses carry Data; error responses carry Message plus stable
// machine codes in Errors (never free text meant for string matching).
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// IsSuccess reports whether the envelope is the success arm of the union.
func (e *Envelope) IsSuccess() bool {
	return e.Status == StatusSuccess
}

// DecodeData unmarshals the success payload into dst.
func (e *Envelope) DecodeData(dst any) error {
	if len(e.Data) == 0 {
		return errors.New("envelope has no data")
	}
	return json.Unmarshal(e.Data, dst)
}

// WriteSuccess writes a success envelope with the given payload.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Envelope{
			Status:  StatusError,
			Message: "an internal error occurred",
			Errors:  []string{"INTERNAL_ERROR"},
		})
		return
	}
	writeJSON(w, status, Envelope{Status: StatusSuccess, Data: raw})
}

// WriteError writes an error envelope derived from err. The HTTP status comes
// from the error classification; internal errors are logged through the
// request-scoped logger when one is present, falling back otherwise.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	status := apperrors.HTTPStatus(err)
	code := apperrors.Code(err)

	message := "an internal error occurred"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeJSON(w, status, Envelope{
		Status:  StatusError,
		Message: message,
		Errors:  []string{code},
	})
}

// WriteValidationError writes a 400 error envelope carrying one stable
// FIELD_<NAME> code per failed field, keeping field mapping off message text.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, Envelope{
			Status:  StatusError,
			Message: valErr.Error(),
			Errors:  valErr.Codes(),
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, Envelope{
		Status:  StatusError,
		Message: err.Error(),
		Errors:  []string{"INVALID_INPUT"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}
