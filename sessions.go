package authgate

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SessionToken is what a successful sign-in hands back to the transport
// layer: the raw client-held secret and its expiry. Callers set it as an
// HttpOnly cookie; the library never persists or logs the raw token.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// SessionResult is the outcome of validating a token. User is nil for an
// anonymous result (token missing, unknown, or expired). When Renewed is
// set, Token carries a replacement token the client must store in place of
// the one it presented.
type SessionResult struct {
	User      *User
	ExpiresAt time.Time
	Token     string
	Renewed   bool
}

// Anonymous reports whether the result resolved no user
func (r *SessionResult) Anonymous() bool {
	return r == nil || r.User == nil
}

// SessionManager issues, validates and revokes sessions. Session rows move
// from active to expired (time-driven) or revoked (explicit delete); there
// is no way back.
type SessionManager struct {
	store            Store
	maxAge           time.Duration
	renewalThreshold time.Duration
}

// NewSessionManager creates a session manager over the given store.
func NewSessionManager(store Store, opts *Options) *SessionManager {
	opts.EnsureDefaults()
	return &SessionManager{
		store:            store,
		maxAge:           opts.SessionMaxAge,
		renewalThreshold: opts.RenewalThreshold,
	}
}

// CreateSession issues a fresh session for userID and persists only the
// token's hash. The returned raw token goes to the client and is never
// stored server-side.
func (m *SessionManager) CreateSession(ctx context.Context, userID string) (*SessionToken, error) {
	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		TokenHash: HashToken(token),
		UserID:    userID,
		ExpiresAt: now.Add(m.maxAge),
		CreatedAt: now,
	}
	if err := m.store.PutSession(ctx, session); err != nil {
		return nil, err
	}

	return &SessionToken{Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// ValidateToken resolves a raw token to its owning user. Unknown and expired
// tokens yield an anonymous result, not an error; expired rows are deleted
// lazily on the way out. When the remaining TTL drops below the renewal
// threshold a replacement session is issued (rolling expiry): the result
// carries the new token and the presented one keeps its original expiry, so
// concurrent requests racing the renewal still validate until then.
// Store faults propagate unmodified so authentication fails closed.
func (m *SessionManager) ValidateToken(ctx context.Context, token string) (*SessionResult, error) {
	if token == "" {
		return &SessionResult{}, nil
	}

	session, err := m.store.GetSession(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return &SessionResult{}, nil
		}
		return nil, err
	}

	if session.IsExpired() {
		if derr := m.store.DeleteSession(ctx, session.TokenHash); derr != nil {
			slog.Warn("failed to delete expired session", "err", derr)
		}
		return &SessionResult{}, nil
	}

	user, err := m.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// orphaned session; treat as anonymous and drop the row
			if derr := m.store.DeleteSession(ctx, session.TokenHash); derr != nil {
				slog.Warn("failed to delete orphaned session", "err", derr)
			}
			return &SessionResult{}, nil
		}
		return nil, err
	}

	result := &SessionResult{User: user, ExpiresAt: session.ExpiresAt, Token: token}

	if m.renewalThreshold > 0 && time.Until(session.ExpiresAt) < m.renewalThreshold {
		renewed, err := m.CreateSession(ctx, session.UserID)
		if err != nil {
			// renewal failure does not invalidate the presented session
			slog.Warn("session renewal failed", "err", err)
			return result, nil
		}
		result.Token = renewed.Token
		result.ExpiresAt = renewed.ExpiresAt
		result.Renewed = true
	}

	return result, nil
}

// InvalidateToken revokes the session for a raw token. Idempotent: revoking
// an unknown or already-revoked token is not an error.
func (m *SessionManager) InvalidateToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.DeleteSession(ctx, HashToken(token))
}

// InvalidateAllTokens revokes every session owned by userID ("log out
// everywhere"). Idempotent.
func (m *SessionManager) InvalidateAllTokens(ctx context.Context, userID string) error {
	return m.store.DeleteUserSessions(ctx, userID)
}
