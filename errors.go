package authgate

import "errors"

var (
	// ErrInvalidCredentials indicates that the email/password pair did not
	// match. It never distinguishes which part failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists indicates a signup attempt with an already-registered email.
	ErrUserExists = errors.New("user already exists")

	// ErrIncorrectPassword indicates the current password supplied to a
	// password change did not verify.
	ErrIncorrectPassword = errors.New("incorrect password")

	// ErrProfileIncomplete indicates an OAuth provider did not supply the
	// fields required to resolve or link an account.
	ErrProfileIncomplete = errors.New("provider profile incomplete")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountNotFound indicates no account exists for a (provider, accountID) pair.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSessionNotFound indicates no session row exists for a token hash.
	// Session validation collapses this into an anonymous result rather than
	// surfacing it to callers.
	ErrSessionNotFound = errors.New("session not found")

	// ErrProviderNotFound indicates a sign-in referenced an unregistered provider.
	ErrProviderNotFound = errors.New("provider not found")
)

// Error codes used in JSON error responses
const (
	ErrCodeInvalidCreds      = "invalid_credentials"
	ErrCodeEmailExists       = "email_exists"
	ErrCodeIncorrectPassword = "incorrect_password"
	ErrCodeMissingField      = "missing_field"
	ErrCodeInvalidEmail      = "invalid_email"
	ErrCodeWeakPassword      = "weak_password"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeServerError       = "server_error"
)

// AuthError is a user-facing authentication error with a stable code and
// the form field it relates to (if any). Handlers serialize it to JSON.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates an AuthError with the given code, message and field
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}
