package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Loose IBAN shape check: country code, two check digits, 11-30 alphanumerics.
// Full mod-97 validation stays with the payout processor.
var ibanRegexp = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

func init() {
	// `iban` tag for bank detail payloads.
	_ = validate.RegisterValidation("iban", func(fl validator.FieldLevel) bool {
		return ibanRegexp.MatchString(strings.ToUpper(strings.ReplaceAll(fl.Field().String(), " ", "")))
	})
}

// Validate validates a struct using go-playground/validator tags.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{Errors: validationErrors}
		}
		return err
	}
	return nil
}

// ValidationError wraps validator.ValidationErrors with user-friendly
// messages and stable per-field codes.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", err.Field(), msgForTag(err)))
	}
	return strings.Join(msgs, "; ")
}

// Fields returns a map of field names to human-readable error messages.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, err := range e.Errors {
		fields[err.Field()] = msgForTag(err)
	}
	return fields
}

// Codes returns one stable FIELD_<NAME> code per failed field. Clients key
// field-level error display on these rather than parsing messages.
func (e *ValidationError) Codes() []string {
	codes := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		codes = append(codes, "FIELD_"+strings.ToUpper(err.Field()))
	}
	return codes
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "iban":
		return "must be a valid IBAN"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
