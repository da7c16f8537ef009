package authgate

import (
	"context"
	"net/http"
	"time"
)

// Default session lifetimes
const (
	DefaultSessionMaxAge    = 7 * 24 * time.Hour
	DefaultRenewalThreshold = 24 * time.Hour
	DefaultCookieName       = "authgate_session"
)

// Provider exchanges an OAuth authorization code for a normalized profile.
// Implementations live in the oauth2 subpackage; the credentials provider is
// built in and does not appear in the registry.
type Provider interface {
	// Name returns the provider key ("google", "github", "discord", ...)
	Name() string

	// AuthCodeURL returns the provider's consent page URL for the given
	// anti-forgery state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for the provider's view of the
	// user, normalized into a Profile.
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Profile is the normalized identity a provider reports after a successful
// exchange. AccountID is the provider's stable subject identifier.
type Profile struct {
	Provider  string
	AccountID string
	Name      string
	Email     string
	Image     string
}

// Options is the immutable process-wide configuration. Construct it once,
// call EnsureDefaults, and pass it to New; nothing mutates it afterwards.
type Options struct {
	// Cookie attributes for the session cookie. The cookie is always
	// HttpOnly; SameSite defaults to Lax.
	CookieName   string
	CookiePath   string
	CookieDomain string
	SameSite     http.SameSite

	// SecureCookies marks the session cookie Secure. Enable in production.
	SecureCookies bool

	// SessionMaxAge bounds a session's lifetime from issue.
	SessionMaxAge time.Duration

	// RenewalThreshold is the remaining TTL below which a validated session
	// is silently reissued (rolling renewal). Zero means the default;
	// negative disables renewal.
	RenewalThreshold time.Duration

	// BcryptCost for password hashing. Zero means bcrypt.DefaultCost.
	BcryptCost int

	// Providers maps provider name to implementation. The registry is fixed
	// at construction; sign-in with an unknown name fails with
	// ErrProviderNotFound.
	Providers map[string]Provider

	// JWTSecretKey signs API access tokens. Empty disables API tokens.
	JWTSecretKey string

	// JWTIssuer is the iss claim on API access tokens.
	JWTIssuer string

	// AccessTokenExpiry bounds API access token lifetime. Defaults to 15m.
	AccessTokenExpiry time.Duration
}

// EnsureDefaults fills zero fields with reasonable defaults and returns the
// options for chaining.
func (o *Options) EnsureDefaults() *Options {
	if o.CookieName == "" {
		o.CookieName = DefaultCookieName
	}
	if o.CookiePath == "" {
		o.CookiePath = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	if o.SessionMaxAge <= 0 {
		o.SessionMaxAge = DefaultSessionMaxAge
	}
	if o.RenewalThreshold == 0 {
		o.RenewalThreshold = DefaultRenewalThreshold
	}
	if o.RenewalThreshold < 0 {
		o.RenewalThreshold = 0
	}
	if o.RenewalThreshold >= o.SessionMaxAge {
		// renewal threshold must leave a window where sessions are not renewed
		o.RenewalThreshold = o.SessionMaxAge / 2
	}
	if o.AccessTokenExpiry <= 0 {
		o.AccessTokenExpiry = 15 * time.Minute
	}
	if o.Providers == nil {
		o.Providers = map[string]Provider{}
	}
	return o
}

// SessionCookie builds the session cookie for a signed-in client. Callers
// hand it to http.SetCookie; SignOut uses an expired variant to clear it.
func (o *Options) SessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     o.CookieName,
		Value:    token,
		Path:     o.CookiePath,
		Domain:   o.CookieDomain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   o.SecureCookies,
		SameSite: o.SameSite,
	}
}

// ClearSessionCookie builds a cookie that deletes the session cookie.
func (o *Options) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     o.CookieName,
		Value:    "",
		Path:     o.CookiePath,
		Domain:   o.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   o.SecureCookies,
		SameSite: o.SameSite,
	}
}
