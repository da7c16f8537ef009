package authgate

import (
	"context"
	"net/http"
	"strings"
)

// AuthGate is the single entry point the surrounding application consumes:
// resolve the current session from a request, sign users in via credentials
// or an OAuth provider profile, and sign them out. It composes the session
// manager, credential authenticator and OAuth resolver over one store and
// one immutable Options value.
type AuthGate struct {
	Options     *Options
	Store       Store
	Sessions    *SessionManager
	Credentials *CredentialAuthenticator
	Resolver    *OAuthResolver
}

// New constructs the facade. opts may be nil for all-default configuration.
func New(store Store, opts *Options) *AuthGate {
	if opts == nil {
		opts = &Options{}
	}
	opts.EnsureDefaults()

	hasher := NewPasswordHasher(opts.BcryptCost)
	sessions := NewSessionManager(store, opts)
	return &AuthGate{
		Options:     opts,
		Store:       store,
		Sessions:    sessions,
		Credentials: NewCredentialAuthenticator(store, hasher, sessions),
		Resolver:    NewOAuthResolver(store),
	}
}

// Auth resolves the session carried by the request. A missing, unknown or
// expired token yields an anonymous result, never an error; errors mean the
// store itself failed. The only side effect is the session manager's rolling
// renewal, which callers surface by re-setting the cookie when
// result.Renewed is true (WriteSession does both).
func (a *AuthGate) Auth(r *http.Request) (*SessionResult, error) {
	return a.Sessions.ValidateToken(r.Context(), a.TokenFromRequest(r))
}

// ValidateToken resolves a raw session token without an HTTP request, for
// non-HTTP transports such as gRPC metadata.
func (a *AuthGate) ValidateToken(ctx context.Context, token string) (*SessionResult, error) {
	return a.Sessions.ValidateToken(ctx, token)
}

// SignIn authenticates an email/password pair and returns the session token
// for the caller to deliver as a cookie.
func (a *AuthGate) SignIn(ctx context.Context, email, password string) (*SessionToken, error) {
	return a.Credentials.VerifyCredentials(ctx, email, password)
}

// SignInWithProfile resolves an OAuth provider profile (obtained from a
// registered Provider's Exchange) to a user and issues a session.
func (a *AuthGate) SignInWithProfile(ctx context.Context, profile *Profile) (*SessionToken, *User, error) {
	user, err := a.Resolver.GetOrCreateUser(ctx, profile)
	if err != nil {
		return nil, nil, err
	}
	token, err := a.Sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return token, user, nil
}

// Provider returns the registered provider for name, or ErrProviderNotFound.
func (a *AuthGate) Provider(name string) (Provider, error) {
	p, ok := a.Options.Providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// SignOut revokes the request's session and clears the cookie. Idempotent:
// signing out an anonymous request succeeds.
func (a *AuthGate) SignOut(w http.ResponseWriter, r *http.Request) error {
	token := a.TokenFromRequest(r)
	if err := a.Sessions.InvalidateToken(r.Context(), token); err != nil {
		return err
	}
	http.SetCookie(w, a.Options.ClearSessionCookie())
	return nil
}

// WriteSession sets the session cookie for a freshly issued token.
func (a *AuthGate) WriteSession(w http.ResponseWriter, token *SessionToken) {
	http.SetCookie(w, a.Options.SessionCookie(token.Token, token.ExpiresAt))
}

// RefreshSession re-sets the cookie when validation rolled the session over.
func (a *AuthGate) RefreshSession(w http.ResponseWriter, result *SessionResult) {
	if result != nil && result.Renewed {
		http.SetCookie(w, a.Options.SessionCookie(result.Token, result.ExpiresAt))
	}
}

// TokenFromRequest extracts the raw session token from the session cookie,
// falling back to a Bearer Authorization header for non-browser clients.
// Returns "" when neither is present.
func (a *AuthGate) TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(a.Options.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
