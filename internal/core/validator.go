package core

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// Validator wraps go-playground/validator to register domain-specific rules
// and translate raw validation failures into the structured error codes
// returned by the API.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes a single field-level validation failure in a form
// safe to return to clients.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult aggregates field errors and non-blocking warnings from a
// single validation pass.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether the result contains no errors. Warnings do not
// affect validity.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// NewValidator creates a new Validator and registers custom validation tags.
//
// Field names in validation errors use the json struct tag when present, so
// clients see the wire-format name ("campaign_name") rather than the Go
// identifier ("CampaignName").
func NewValidator(logger *slog.Logger) *Validator {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// notblank rejects strings that are empty or contain only whitespace.
	// `required` alone accepts "   ", which upstream lookups then fail on
	// with a confusing not-found error.
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{
		validate: validate,
		logger:   logger,
	}
}

// ValidateStruct validates a struct against its `validate` tags.
//
// On failure it returns a *types.AppError whose Code is taken from the first
// field failure and whose Details carry the full list of field errors under
// the "validation_errors" key. On success it returns nil.
func (v *Validator) ValidateStruct(s interface{}) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}

	return types.NewAppErrorWithDetails(
		types.ErrorCode(result.Errors[0].Code),
		"request validation failed",
		nil,
		map[string]any{
			"validation_errors": result.Errors,
		},
	)
}

// ValidateStructWithWarnings validates a struct and returns the full
// ValidationResult instead of collapsing it into an error. Callers that want
// to surface warnings alongside a success response use this form.
func (v *Validator) ValidateStructWithWarnings(s interface{}) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: the value passed in was not a struct.
		// This is a programming error, not client input.
		v.logger.Error("validator received non-struct value", "error", err)
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Code:    string(types.ErrCodeInternalUnexpected),
			Message: "internal validation error",
		})
		return result
	}

	for _, fe := range validationErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    tagToErrorCode(fe.Tag()),
			Message: messageForTag(fe),
		})
	}

	return result
}

// tagToErrorCode maps a validator tag to the API error code reported for
// failures of that tag.
func tagToErrorCode(tag string) string {
	switch tag {
	case "required", "notblank":
		return string(types.ErrCodeValidationMissingField)
	case "email":
		return string(types.ErrCodeValidationInvalidEmail)
	default:
		return string(types.ErrCodeValidationInvalidField)
	}
}

// messageForTag builds a human-readable message for a field failure.
// Messages must not echo back the offending value; request payloads can
// contain credentials or PII.
func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "notblank":
		return "this field must not be blank"
	case "email":
		return "must be a valid email address"
	case "uuid4":
		return "must be a valid UUID"
	case "min":
		return "value is below the allowed minimum (" + fe.Param() + ")"
	case "max":
		return "value exceeds the allowed maximum (" + fe.Param() + ")"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed validation rule: " + fe.Tag()
	}
}
