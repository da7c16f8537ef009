package authgate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// MinPasswordLength is the minimum accepted password length for signup and
// password changes.
const MinPasswordLength = 8

// CredentialAuthenticator verifies email/password pairs against stored
// accounts and on success asks the session manager for a session.
type CredentialAuthenticator struct {
	store    Store
	hasher   *PasswordHasher
	sessions *SessionManager
}

// NewCredentialAuthenticator wires the credentials provider over a store,
// hasher and session manager.
func NewCredentialAuthenticator(store Store, hasher *PasswordHasher, sessions *SessionManager) *CredentialAuthenticator {
	return &CredentialAuthenticator{store: store, hasher: hasher, sessions: sessions}
}

// VerifyCredentials checks the email/password pair and issues a session on
// success. Every failure is ErrInvalidCredentials; callers cannot tell
// whether the email or the password was wrong. The missing-user path burns
// a dummy bcrypt comparison so its latency matches the wrong-password path
// and does not leak which emails are registered.
func (a *CredentialAuthenticator) VerifyCredentials(ctx context.Context, email, password string) (*SessionToken, error) {
	user, err := a.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.hasher.VerifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	account, err := a.store.GetAccountByUser(ctx, user.ID, ProviderCredentials)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			a.hasher.VerifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !a.hasher.Verify(account.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return a.sessions.CreateSession(ctx, user.ID)
}

// SignUp registers a new user with a credentials account. Fails with
// ErrUserExists if the email is already registered; no duplicate user or
// account is created.
func (a *CredentialAuthenticator) SignUp(ctx context.Context, name, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if err := ValidateSignup(name, email, password); err != nil {
		return nil, err
	}

	if _, err := a.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	digest, err := a.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := a.store.CreateUser(ctx, name, email, "")
	if err != nil {
		return nil, err
	}

	account := &Account{
		Provider:     ProviderCredentials,
		AccountID:    user.ID,
		UserID:       user.ID,
		PasswordHash: digest,
	}
	if err := a.store.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create credentials account: %w", err)
	}

	return user, nil
}

// ChangePassword updates the stored digest for userID. If the user has no
// credentials account yet (OAuth-only user) one is created with the new
// password; otherwise the current password must verify or the call fails
// with ErrIncorrectPassword. Existing sessions are deliberately left alone;
// callers that want "log out everywhere" combine this with
// SessionManager.InvalidateAllTokens.
func (a *CredentialAuthenticator) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return NewAuthError(ErrCodeWeakPassword,
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength), "password")
	}

	digest, err := a.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	account, err := a.store.GetAccountByUser(ctx, userID, ProviderCredentials)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// first-time set for an OAuth-only user
			return a.store.CreateAccount(ctx, &Account{
				Provider:     ProviderCredentials,
				AccountID:    userID,
				UserID:       userID,
				PasswordHash: digest,
			})
		}
		return err
	}

	if !a.hasher.Verify(account.PasswordHash, currentPassword) {
		return ErrIncorrectPassword
	}

	return a.store.UpdateAccountPassword(ctx, ProviderCredentials, account.AccountID, digest)
}

// ValidateSignup checks signup fields before any store access
func ValidateSignup(name, email, password string) error {
	if name == "" {
		return NewAuthError(ErrCodeMissingField, "Name is required", "name")
	}
	if email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if !emailRegex.MatchString(email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	if len(password) < MinPasswordLength {
		return NewAuthError(ErrCodeWeakPassword,
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength), "password")
	}
	return nil
}

// normalizeEmail lowercases an email for case-insensitive comparison
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
