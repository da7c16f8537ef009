package authgate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type contextKey string

const userContextKey contextKey = "authgate.user"

// Middleware classifies requests by their resolved session: it annotates the
// request context with the current user, redirects anonymous requests away
// from protected paths, and redirects signed-in users away from auth-only
// pages (login, register).
type Middleware struct {
	Auth *AuthGate

	// LoginURL is where anonymous requests to protected routes are sent.
	// Empty means respond 401 instead of redirecting.
	LoginURL string

	// HomeURL is where signed-in requests to auth-only routes are sent.
	// Defaults to "/".
	HomeURL string

	// CallbackURLParam names the query parameter carrying the original URL
	// on login redirects. Defaults to "callbackURL".
	CallbackURLParam string
}

// EnsureReasonableDefaults fills zero fields with usable values
func (m *Middleware) EnsureReasonableDefaults() {
	if m.HomeURL == "" {
		m.HomeURL = "/"
	}
	if m.CallbackURLParam == "" {
		m.CallbackURLParam = "callbackURL"
	}
}

// UserFromContext returns the user annotated by ExtractUser, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// ContextWithUser returns a child context carrying the user. Exposed for
// tests and for handlers invoked outside the middleware chain.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// ExtractUser resolves the request's session and stores the user (if any) in
// the request context for downstream handlers. It never redirects; combine
// with RequireUser to enforce login. A Bearer API token is accepted in place
// of a session when JWT is configured.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.resolveUser(w, r)
		if user != nil {
			r = r.WithContext(ContextWithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser enforces a signed-in user, redirecting to LoginURL (carrying
// the original path in CallbackURLParam) or answering 401 when no login page
// is configured.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.resolveUser(w, r)
		if user == nil {
			if m.LoginURL == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			encoded := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
			http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", m.LoginURL, m.CallbackURLParam, encoded), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireAnonymous redirects signed-in users to HomeURL. Mount it on
// auth-only pages such as login and register.
func (m *Middleware) RequireAnonymous(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.resolveUser(w, r); user != nil {
			http.Redirect(w, r, m.HomeURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// VerifyOrigin rejects state-changing cross-origin requests by comparing the
// declared Origin (or Referer) host against the request host. Requests with
// a resolved user bypass the check, as do safe methods.
func (m *Middleware) VerifyOrigin(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if user := m.resolveUser(w, r); user != nil {
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
			return
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = r.Header.Get("Referer")
		}
		if origin != "" {
			u, err := url.Parse(origin)
			if err != nil || !strings.EqualFold(u.Host, r.Host) {
				http.Error(w, "Cross-origin request rejected", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// resolveUser resolves the current user from the session cookie or a Bearer
// API token, refreshing the cookie when validation rolled the session over.
func (m *Middleware) resolveUser(w http.ResponseWriter, r *http.Request) *User {
	if user := UserFromContext(r.Context()); user != nil {
		return user
	}

	result, err := m.Auth.Auth(r)
	if err != nil {
		slog.Warn("session validation failed", "err", err)
		return nil
	}
	if !result.Anonymous() {
		m.Auth.RefreshSession(w, result)
		return result.User
	}

	// fall back to API access tokens when configured
	if m.Auth.Options.JWTSecretKey == "" {
		return nil
	}
	auth := r.Header.Get("Authorization")
	bearer, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return nil
	}
	userID, err := m.Auth.VerifyAccessToken(strings.TrimSpace(bearer))
	if err != nil {
		return nil
	}
	user, err := m.Auth.Store.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}
