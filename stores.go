package authgate

import (
	"context"
	"time"
)

// ProviderCredentials is the provider name of the email/password method.
// It is modeled as one provider among the OAuth providers so a user's
// authentication methods share a single Account shape.
const ProviderCredentials = "credentials"

// User is an identity record. Created on first signup or first OAuth login,
// updated on profile sync, never mutated by session operations.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"` // compared case-insensitively
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account links a User to one authentication provider. At most one Account
// exists per (provider, accountID), and at most one credentials Account per
// user. PasswordHash is set only for the credentials provider.
type Account struct {
	Provider     string    `json:"provider"`
	AccountID    string    `json:"account_id"`
	UserID       string    `json:"user_id"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the server-held half of a login: the digest of the client's
// token (the lookup key), the owning user, and the expiry. The raw token is
// never stored.
type Session struct {
	TokenHash string    `json:"token_hash"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session's expiry has passed
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// UserStore manages identity records
type UserStore interface {
	// CreateUser creates a new user. The store assigns the ID and timestamps.
	CreateUser(ctx context.Context, name, email, image string) (*User, error)

	// GetUserByID retrieves a user by ID. Returns ErrUserNotFound if absent.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email, compared case-insensitively.
	// Returns ErrUserNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateUser persists changes to an existing user's profile fields.
	UpdateUser(ctx context.Context, user *User) error
}

// AccountStore manages provider linkages
type AccountStore interface {
	// CreateAccount persists a new account linkage.
	CreateAccount(ctx context.Context, account *Account) error

	// GetAccount retrieves an account by (provider, accountID).
	// Returns ErrAccountNotFound if absent.
	GetAccount(ctx context.Context, provider, accountID string) (*Account, error)

	// GetAccountByUser retrieves the account a user holds with the given
	// provider. Returns ErrAccountNotFound if absent.
	GetAccountByUser(ctx context.Context, userID, provider string) (*Account, error)

	// UpdateAccountPassword overwrites the stored password digest of the
	// account identified by (provider, accountID).
	UpdateAccountPassword(ctx context.Context, provider, accountID, passwordHash string) error
}

// SessionStore persists session rows keyed by token hash. Lookup and expiry
// comparison must be atomic per row; PutSession is an upsert so a rolling
// renewal interrupted mid-flight never leaves a half-written row.
type SessionStore interface {
	// PutSession creates or replaces the session row for session.TokenHash.
	PutSession(ctx context.Context, session *Session) error

	// GetSession retrieves a session row by token hash.
	// Returns ErrSessionNotFound if absent.
	GetSession(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteSession removes the session row for tokenHash. Deleting an
	// absent row is not an error.
	DeleteSession(ctx context.Context, tokenHash string) error

	// DeleteUserSessions removes every session row owned by userID.
	DeleteUserSessions(ctx context.Context, userID string) error
}

// Store combines the persistence contracts the core depends on. The library
// never owns the rows; implementations live in stores/fs, stores/gorm and
// stores/gae, or in the application itself.
type Store interface {
	UserStore
	AccountStore
	SessionStore
}
