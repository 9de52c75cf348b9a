package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// maxRequestBodySize caps inbound request bodies at 1 MB. Campaign payloads
// are a few KB at most; anything larger is abuse or a bug.
const maxRequestBodySize = 1 << 20

// APIErrorResponse is the envelope every error response uses. Success bodies
// are endpoint-specific and flat; only errors share a shape.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an error.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// JSON marshals data and writes it with the given status. When data cannot
// be marshalled the status is overridden to 500 and a standard error
// envelope goes out instead, so the client never sees a half-written body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		// The fallback envelope contains only strings and cannot fail to
		// marshal.
		body, _ = json.Marshal(APIErrorResponse{
			Error: ErrorDetail{
				Code:      string(types.ErrCodeInternalUnexpected),
				Message:   "failed to marshal response",
				RequestID: types.GetRequestID(r.Context()),
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes the error envelope for err. An *types.AppError anywhere in
// the chain supplies the status, code, message and details; any other error
// collapses to a generic 500. Wrapped causes never reach the client either
// way, so upstream addresses and driver errors stay out of responses.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := ErrorDetail{
		Code:      string(types.ErrCodeInternalUnexpected),
		Message:   "an unexpected error occurred",
		RequestID: types.GetRequestID(r.Context()),
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		detail.Code = string(appErr.Code)
		detail.Message = appErr.Message
		detail.Details = appErr.Details
	}

	JSON(w, r, status, APIErrorResponse{Error: detail})
}

// errCodeValidationInvalidJSON marks malformed request bodies. It is owned
// by the chassis; handlers report field-level problems with the validation
// codes instead.
const errCodeValidationInvalidJSON types.ErrorCode = "validation_invalid_json"

// DecodeJSON reads the request body into dst. The body is capped at
// maxRequestBodySize, unknown fields are rejected, and exactly one JSON
// value must be present. All failures come back as a 400-class AppError
// with code validation_invalid_json; w is needed so MaxBytesReader can
// arm the connection-level limit.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}
	if dec.More() {
		return invalidJSON("request body must contain a single JSON object", nil)
	}
	return nil
}

func invalidJSON(message string, cause error) *types.AppError {
	return types.NewAppError(errCodeValidationInvalidJSON, message, cause)
}

// mapDecodeError turns the zoo of json.Decoder failures into one
// client-facing AppError per cause.
func mapDecodeError(err error) *types.AppError {
	var (
		tooLarge *http.MaxBytesError
		syntax   *json.SyntaxError
		badType  *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &tooLarge):
		return invalidJSON("request body must not exceed 1MB", err)

	case errors.As(err, &syntax):
		return invalidJSON("malformed JSON in request body", err)

	case errors.As(err, &badType):
		return types.NewAppErrorWithDetails(
			errCodeValidationInvalidJSON,
			"invalid value for field",
			err,
			map[string]any{
				"field":    badType.Field,
				"expected": badType.Type.String(),
			},
		)

	case strings.HasPrefix(err.Error(), "json: unknown field"):
		// The decoder only exposes the field name inside the error string.
		name := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return invalidJSON("unknown field in request body: "+name, err)

	case errors.Is(err, io.EOF):
		return invalidJSON("request body must not be empty", err)

	default:
		return invalidJSON("invalid JSON in request body", err)
	}
}
