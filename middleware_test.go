package authgate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ag "github.com/pavellin/authgate"
)

func okHandler(t *testing.T, sawUser *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := ag.UserFromContext(r.Context()); user != nil && sawUser != nil {
			*sawUser = user.ID
		}
		w.WriteHeader(http.StatusOK)
	})
}

func signedInRequest(t *testing.T, auth *ag.AuthGate, target string) (*http.Request, *ag.User) {
	t.Helper()
	ctx := context.Background()
	user, err := auth.Credentials.SignUp(ctx, "Alice", "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	token, err := auth.SignIn(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	r := httptest.NewRequest("GET", target, nil)
	r.AddCookie(auth.Options.SessionCookie(token.Token, token.ExpiresAt))
	return r, user
}

func TestRequireUser_Anonymous401(t *testing.T) {
	auth := newAuthGate(t)
	mw := &ag.Middleware{Auth: auth}

	w := httptest.NewRecorder()
	mw.RequireUser(okHandler(t, nil)).ServeHTTP(w, httptest.NewRequest("GET", "/private", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRequireUser_AnonymousRedirect(t *testing.T) {
	auth := newAuthGate(t)
	mw := &ag.Middleware{Auth: auth, LoginURL: "/login"}

	w := httptest.NewRecorder()
	mw.RequireUser(okHandler(t, nil)).ServeHTTP(w, httptest.NewRequest("GET", "/private/page", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "/login?callbackURL=") {
		t.Errorf("expected login redirect carrying the original path, got %q", location)
	}
	if !strings.Contains(location, "%2Fprivate%2Fpage") {
		t.Errorf("expected encoded original path in %q", location)
	}
}

func TestRequireUser_SignedIn(t *testing.T) {
	auth := newAuthGate(t)
	mw := &ag.Middleware{Auth: auth, LoginURL: "/login"}

	r, user := signedInRequest(t, auth, "/private")
	var sawUser string
	w := httptest.NewRecorder()
	mw.RequireUser(okHandler(t, &sawUser)).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if sawUser != user.ID {
		t.Errorf("handler saw user %q, want %q", sawUser, user.ID)
	}
}

func TestExtractUser_NeverBlocks(t *testing.T) {
	auth := newAuthGate(t)
	mw := &ag.Middleware{Auth: auth}

	w := httptest.NewRecorder()
	mw.ExtractUser(okHandler(t, nil)).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("anonymous request should pass through, got %d", w.Code)
	}

	r, user := signedInRequest(t, auth, "/")
	var sawUser string
	w = httptest.NewRecorder()
	mw.ExtractUser(okHandler(t, &sawUser)).ServeHTTP(w, r)
	if sawUser != user.ID {
		t.Errorf("handler saw user %q, want %q", sawUser, user.ID)
	}
}

func TestRequireAnonymous(t *testing.T) {
	auth := newAuthGate(t)
	mw := &ag.Middleware{Auth: auth, HomeURL: "/home"}

	// Anonymous requests reach the login page.
	w := httptest.NewRecorder()
	mw.RequireAnonymous(okHandler(t, nil)).ServeHTTP(w, httptest.NewRequest("GET", "/login", nil))
	if w.Code != http.StatusOK {
		t.Errorf("anonymous request should pass, got %d", w.Code)
	}

	// Signed-in users are bounced home.
	r, _ := signedInRequest(t, auth, "/login")
	w = httptest.NewRecorder()
	mw.RequireAnonymous(okHandler(t, nil)).ServeHTTP(w, r)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/home" {
		t.Errorf("expected redirect to /home, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestVerifyOrigin(t *testing.T) {
	auth := newAuthGate(t)
	mw := &ag.Middleware{Auth: auth}
	handler := mw.VerifyOrigin(okHandler(t, nil))

	// Safe methods always pass.
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/", nil)
	r.Header.Set("Origin", "http://evil.com")
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("GET should bypass origin checks, got %d", w.Code)
	}

	// Cross-origin POST is rejected.
	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "http://example.com/submit", nil)
	r.Header.Set("Origin", "http://evil.com")
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("cross-origin POST should be rejected, got %d", w.Code)
	}

	// Same-origin POST passes.
	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "http://example.com/submit", nil)
	r.Header.Set("Origin", "http://example.com")
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("same-origin POST should pass, got %d", w.Code)
	}

	// A signed-in session bypasses the check.
	signedIn, _ := signedInRequest(t, auth, "http://example.com/submit")
	signedIn.Method = "POST"
	signedIn.Header.Set("Origin", "http://evil.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, signedIn)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated POST should bypass origin checks, got %d", w.Code)
	}
}

func TestMiddleware_BearerAPIToken(t *testing.T) {
	auth := newAuthGate(t)
	mw := &ag.Middleware{Auth: auth}
	ctx := context.Background()

	user, err := auth.Credentials.SignUp(ctx, "Alice", "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	accessToken, _, err := auth.IssueAccessToken(user.ID)
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/me", nil)
	r.Header.Set("Authorization", "Bearer "+accessToken)

	var sawUser string
	w := httptest.NewRecorder()
	mw.RequireUser(okHandler(t, &sawUser)).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if sawUser != user.ID {
		t.Errorf("handler saw user %q, want %q", sawUser, user.ID)
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	if user := ag.UserFromContext(context.Background()); user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}
