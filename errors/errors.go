package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Capture and intake ---

// PermissionDenied creates an error for refused microphone access.
func PermissionDenied(cause error) *AppError {
	return &AppError{
		Code: ErrCodePermissionDenied, Message: "Microphone access was denied. Allow microphone access and try again.",
		HTTPStatus: http.StatusForbidden, Retryable: false, Cause: cause,
	}
}

// UnsupportedBrowser creates an error for a host that cannot record audio.
func UnsupportedBrowser(cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedBrowser, Message: "Audio recording is not supported here. Try uploading a file instead.",
		HTTPStatus: http.StatusNotImplemented, Retryable: false, Cause: cause,
	}
}

// FileTooLarge creates an error for audio above the intake cap.
func FileTooLarge(size, limit int64) *AppError {
	return &AppError{
		Code: ErrCodeFileTooLarge, Message: fmt.Sprintf("File is too large. Maximum size is %d MB.", limit/(1024*1024)),
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
		Details: map[string]any{"size": size, "limit": limit},
	}
}

// UnsupportedFormat creates an error for an audio format that is not accepted.
func UnsupportedFormat(format string) *AppError {
	details := make(map[string]any)
	if format != "" {
		details["format"] = format
	}
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: "This audio format is not supported. Try MP3, WAV, M4A or OGG.",
		HTTPStatus: http.StatusUnsupportedMediaType, Retryable: false, Details: details,
	}
}

// InvalidLanguageSelection creates an error for a missing or sentinel language code.
func InvalidLanguageSelection(value string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidLanguageSelection, Message: "Please select a language before transcribing.",
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"language_code": value},
	}
}

// --- Transport ---

// Timeout creates an error for a request that timed out or was aborted.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// ServerError creates an error for a 5xx response.
func ServerError(status int) *AppError {
	return &AppError{
		Code: ErrCodeServerError, Message: "The transcription service encountered an error. Please try again.",
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"status": status},
	}
}

// NoConnectivity creates an error for an unreachable network.
func NoConnectivity(offline bool) *AppError {
	msg := "Could not reach the transcription service. Check your connection and try again."
	if offline {
		msg = "You appear to be offline. Reconnect and try again."
	}
	return &AppError{
		Code: ErrCodeNoConnectivity, Message: msg,
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"offline": offline},
	}
}

// --- Authentication ---

// AuthFailed creates an error for rejected credentials.
func AuthFailed() *AppError {
	return &AppError{
		Code: ErrCodeAuthFailed, Message: "Authentication with the transcription service failed.",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// AuthUnavailable creates an error for a transport token that could not be obtained.
func AuthUnavailable(cause error) *AppError {
	return &AppError{
		Code: ErrCodeAuthUnavailable, Message: "Could not authorize the upload. Please try again later.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false, Cause: cause,
	}
}

// --- Request ---

// PayloadTooLarge creates an error for a body rejected by size.
func PayloadTooLarge() *AppError {
	return &AppError{
		Code: ErrCodePayloadTooLarge, Message: "The audio is too large for the service to accept.",
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
	}
}

// BadRequest creates an error for a request rejected as invalid.
func BadRequest(reason string) *AppError {
	if reason == "" {
		reason = "The request was invalid."
	}
	return &AppError{
		Code: ErrCodeBadRequest, Message: reason,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Validation creates a BadRequest error for local validation failures.
func Validation(message string) *AppError {
	return BadRequest(message)
}

// RateLimited creates an error for too many requests.
func RateLimited() *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please wait a moment and try again.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: false,
	}
}

// Unknown creates an error for anything outside the taxonomy, keeping the
// original message for diagnostics.
func Unknown(cause error) *AppError {
	e := &AppError{
		Code: ErrCodeUnknown, Message: "Something went wrong. Please try again.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
	if cause != nil {
		e.Details = map[string]any{"original": cause.Error()}
	}
	return e
}
