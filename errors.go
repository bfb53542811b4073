package donorauth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidContact means the contact failed local syntax validation
	// (E.164-like for SMS, RFC 5322 for email) before any network call.
	ErrInvalidContact = errors.New("invalid contact address")
	// ErrInvalidCode means the entered code failed local format validation.
	ErrInvalidCode = errors.New("invalid verification code format")
	// ErrCodeRejected means the backend judged the code wrong or expired.
	ErrCodeRejected = errors.New("verification code rejected")
	// ErrResendCooldown means a resend was attempted inside the client-side
	// cooldown window. This is a UX throttle, not a security control.
	ErrResendCooldown = errors.New("verification resend cooldown active")
	// ErrNoVerificationPending means a confirm/resend/switch was attempted
	// with no active verification context.
	ErrNoVerificationPending = errors.New("no verification pending")

	// ErrNetwork is a transport failure with no interpretable backend
	// response.
	ErrNetwork = errors.New("network error")
	// ErrRejected is a structured backend failure: wrong password, duplicate
	// account, malformed request. The backend message is wrapped alongside.
	ErrRejected = errors.New("request rejected")
	// ErrConflict is HTTP 409, account already exists. GoogleRegister
	// handles it by transparently retrying as GoogleLogin.
	ErrConflict = errors.New("account already exists")
	// ErrUnauthenticated is HTTP 401 or an expired session. The
	// Orchestrator recovers from it by clearing local state silently.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrSessionExpired is the only user-visible trace of an implicit
	// logout triggered by backend session invalidation.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotAuthenticated means the operation requires an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrWrongLineage means the operation is not available for the lineage
	// backing the current session.
	ErrWrongLineage = errors.New("operation not available for active session lineage")
	// ErrDeviceNotRecognized means a password-less device login was
	// attempted while the backend does not recognize this device.
	ErrDeviceNotRecognized = errors.New("device not recognized")
	// ErrOperationInFlight means the single-slot guard rejected a duplicate
	// submission while the previous call is still outstanding.
	ErrOperationInFlight = errors.New("operation already in flight")
	// ErrInvalidInput is a local validation failure on non-contact fields.
	ErrInvalidInput = errors.New("invalid input")
)

// APIError carries the backend's structured failure alongside the sentinel
// it maps to, so callers can both branch with errors.Is and surface the
// backend message verbatim.
type APIError struct {
	Sentinel   error
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error (status %d): %v", e.StatusCode, e.Sentinel)
	}
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// BackendMessage extracts the backend-supplied message from err, if any.
// Used by UIs that display Rejected/NetworkError messages verbatim.
func BackendMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
