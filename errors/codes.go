package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Capture and intake errors
const (
	// ErrCodePermissionDenied indicates microphone access was refused.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	// ErrCodeUnsupportedBrowser indicates the capture host has no usable recorder.
	ErrCodeUnsupportedBrowser ErrorCode = "UNSUPPORTED_BROWSER"
	// ErrCodeFileTooLarge indicates the audio exceeds the client intake cap.
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// ErrCodeUnsupportedFormat indicates the audio format is not accepted.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeInvalidLanguageSelection indicates a missing or sentinel language code.
	ErrCodeInvalidLanguageSelection ErrorCode = "INVALID_LANGUAGE_SELECTION"
)

// Transport errors (retryable)
const (
	// ErrCodeTimeout indicates the request timed out or was aborted.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeServerError indicates a 5xx response from the service.
	ErrCodeServerError ErrorCode = "SERVER_ERROR"
	// ErrCodeNoConnectivity indicates the network could not be reached.
	ErrCodeNoConnectivity ErrorCode = "NO_CONNECTIVITY"
)

// Authentication errors
const (
	// ErrCodeAuthFailed indicates the service rejected the credentials (401).
	ErrCodeAuthFailed ErrorCode = "AUTH_FAILED"
	// ErrCodeAuthUnavailable indicates a transport token could not be obtained.
	ErrCodeAuthUnavailable ErrorCode = "AUTH_UNAVAILABLE"
)

// Request errors
const (
	// ErrCodePayloadTooLarge indicates the service rejected the body size (413).
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrCodeBadRequest indicates the service rejected the request (400).
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	// ErrCodeRateLimited indicates the client is rate limited (429).
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// ErrCodeUnknown covers everything the taxonomy does not name.
const ErrCodeUnknown ErrorCode = "UNKNOWN"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:        true,
	ErrCodeServerError:    true,
	ErrCodeNoConnectivity: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// Codes returns every code of the taxonomy in a stable order.
func Codes() []ErrorCode {
	return []ErrorCode{
		ErrCodePermissionDenied,
		ErrCodeUnsupportedBrowser,
		ErrCodeFileTooLarge,
		ErrCodeUnsupportedFormat,
		ErrCodeInvalidLanguageSelection,
		ErrCodeTimeout,
		ErrCodeAuthFailed,
		ErrCodeAuthUnavailable,
		ErrCodePayloadTooLarge,
		ErrCodeBadRequest,
		ErrCodeRateLimited,
		ErrCodeServerError,
		ErrCodeNoConnectivity,
		ErrCodeUnknown,
	}
}
