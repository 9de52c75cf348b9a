package types

import (
	"maps"
	"net/http"
	"strings"
)

// ErrorCode names an error category; the string value is what clients see.
type ErrorCode string

// Every error the service reports uses one of these codes. Handlers pick
// the constant, never the raw string.
const (
	// Validation (400)
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidField ErrorCode = "validation_invalid_field"
	ErrCodeValidationInvalidEmail ErrorCode = "validation_invalid_email"

	// Not found (404)
	ErrCodeNotFoundCampaign ErrorCode = "not_found_campaign"
	ErrCodeNotFoundEmail    ErrorCode = "not_found_email"

	// Per-message processing outcomes. Normally recorded in batch results;
	// 502 when one escalates to a whole-request failure.
	ErrCodeGenerationFailed ErrorCode = "generation_failed"
	ErrCodeSubmissionFailed ErrorCode = "submission_failed"

	// Upstream (502)
	ErrCodeUpstreamEmailProvider ErrorCode = "upstream_email_provider_unavailable"
	ErrCodeUpstreamCompletion    ErrorCode = "upstream_completion_unavailable"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited   ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamAuth          ErrorCode = "upstream_auth_failed"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus derives the response status from the code's prefix. A code the
// mapping does not recognize lands on 500 rather than leaking a misleading
// 4xx.
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == ErrCodeGenerationFailed || c == ErrCodeSubmissionFailed:
		return http.StatusBadGateway
	case strings.HasPrefix(string(c), "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(string(c), "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(string(c), "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the error type the whole service trades in. It pairs a
// client-safe code and message with an internal cause that never leaves
// the process.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus is shorthand for e.Code.HTTPStatus().
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy carrying the merged details; the receiver is
// left untouched so shared errors stay safe to annotate.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	maps.Copy(merged, e.Details)
	maps.Copy(merged, details)

	clone := *e
	clone.Details = merged
	return &clone
}

// NewAppError builds an AppError around an optional cause.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewAppErrorWithDetails builds an AppError that also carries structured
// details for the client.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}
