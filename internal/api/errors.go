package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Codes synthesized by the client when the backend did not supply one.
const (
	CodeServerError  = "SERVER_ERROR"
	CodeNetworkError = "NETWORK_ERROR"
	CodeUnknownError = "UNKNOWN_ERROR"
)

const (
	networkErrorMessage = "Network error. Please check your connection."
	// FallbackMessage is shown for errors that carry no usable message.
	FallbackMessage = "An unexpected error occurred"
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorInfo is the structured error carried in a failed envelope.
// Code is an application-level value, not an HTTP status.
type ErrorInfo struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// Error is the single error type returned for every failed API call.
//
// StatusCode is 0 when no HTTP response was received. An Error is built once
// where the failure is detected and is read-only afterwards.
type Error struct {
	status int
	info   ErrorInfo
	cause  error
}

// NewError creates an Error. Details are copied.
func NewError(status int, info ErrorInfo) *Error {
	return newError(status, info, nil)
}

func newError(status int, info ErrorInfo, cause error) *Error {
	if len(info.Details) > 0 {
		info.Details = append([]FieldError(nil), info.Details...)
	}
	return &Error{status: status, info: info, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.info.Message
}

func (e *Error) Unwrap() error { return e.cause }

// StatusCode returns the HTTP status, or 0 when no response was received.
func (e *Error) StatusCode() int { return e.status }

// Code returns the application error code.
func (e *Error) Code() string { return e.info.Code }

// Message returns the top-level error message.
func (e *Error) Message() string { return e.info.Message }

// Details returns a copy of the field-level failures.
func (e *Error) Details() []FieldError {
	if len(e.info.Details) == 0 {
		return nil
	}
	return append([]FieldError(nil), e.info.Details...)
}

// Info returns a copy of the structured error.
func (e *Error) Info() ErrorInfo {
	info := e.info
	info.Details = e.Details()
	return info
}

// String is a developer-facing rendering including status and code.
func (e *Error) String() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.info.Code, e.status, e.info.Message, e.cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.info.Code, e.status, e.info.Message)
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	return nil, false
}

// IsAPIError reports whether err is an *Error with the given code.
func IsAPIError(err error, code string) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.info.Code == code
}

// IsValidationError reports whether err is an *Error with status 422.
func IsValidationError(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.status == http.StatusUnprocessableEntity
}

// IsAuthError reports whether err is an *Error with status 401 or 403.
func IsAuthError(err error) bool {
	apiErr, ok := AsError(err)
	return ok && (apiErr.status == http.StatusUnauthorized || apiErr.status == http.StatusForbidden)
}

// IsNetworkError reports whether the request was sent but no response arrived.
func IsNetworkError(err error) bool {
	return IsAPIError(err, CodeNetworkError)
}

// DisplayMessage renders err for an end user.
//
// Field details are appended as "field: message" pairs after the top-level
// message, e.g. "Validation failed. email: invalid, age: required".
func DisplayMessage(err error) string {
	if err == nil {
		return FallbackMessage
	}
	if apiErr, ok := AsError(err); ok {
		if len(apiErr.info.Details) > 0 {
			pairs := make([]string, 0, len(apiErr.info.Details))
			for _, d := range apiErr.info.Details {
				pairs = append(pairs, d.Field+": "+d.Message)
			}
			return apiErr.info.Message + ". " + strings.Join(pairs, ", ")
		}
		return apiErr.info.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}

// serverError keeps whatever error object the backend sent and fills in the
// fields it left empty.
func serverError(status int, info *ErrorInfo) *Error {
	synthesized := ErrorInfo{
		Code:    CodeServerError,
		Message: fmt.Sprintf("Request failed with status code %d", status),
	}
	if info == nil {
		return newError(status, synthesized, nil)
	}
	merged := *info
	if merged.Code == "" {
		merged.Code = synthesized.Code
	}
	if merged.Message == "" {
		merged.Message = synthesized.Message
	}
	return newError(status, merged, nil)
}

func networkError(cause error) *Error {
	return newError(0, ErrorInfo{Code: CodeNetworkError, Message: networkErrorMessage}, cause)
}

func setupError(cause error) *Error {
	msg := FallbackMessage
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return newError(0, ErrorInfo{Code: CodeUnknownError, Message: msg}, cause)
}
