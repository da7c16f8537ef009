package authgate

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// AuthErrorHandler lets applications take over error rendering. Returning
// true means the error was handled; false falls through to the default JSON
// response.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool

const (
	oauthStateCookie = "oauthstate"
	callbackURLKey   = "oauthCallbackURL"
	linkingUserKey   = "linkingUserID"
)

// Handlers is the HTTP surface of the library: login, signup, logout,
// password change and the OAuth begin/callback pair, routed on a gorilla
// mux. The scs session manager carries short-lived cross-request OAuth
// state (callback URL, account-linking user); the auth session itself
// lives in the token cookie, not in scs.
type Handlers struct {
	Auth *AuthGate

	// Session carries OAuth flow state between the begin and callback
	// requests. Required for the OAuth routes; the credential routes work
	// without it.
	Session *scs.SessionManager

	// OnAuthError is called when login or signup fails. If nil (or it
	// returns false) a JSON error is written.
	OnAuthError AuthErrorHandler

	// SuccessURL is where OAuth callbacks redirect when no callback URL was
	// recorded. Defaults to "/".
	SuccessURL string

	// FailureURL is where failed OAuth callbacks redirect. Defaults to
	// SuccessURL.
	FailureURL string
}

// EnsureDefaults fills zero fields and returns the handlers for chaining
func (h *Handlers) EnsureDefaults() *Handlers {
	if h.SuccessURL == "" {
		h.SuccessURL = "/"
	}
	if h.FailureURL == "" {
		h.FailureURL = h.SuccessURL
	}
	return h
}

// Handler returns the routed HTTP handler. Mount it under your auth prefix:
//
//	root.PathPrefix("/auth").Handler(http.StripPrefix("/auth", handlers.Handler()))
func (h *Handlers) Handler() http.Handler {
	h.EnsureDefaults()
	r := mux.NewRouter()
	r.HandleFunc("/login", h.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/signup", h.HandleSignup).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.HandleLogout).Methods(http.MethodPost, http.MethodGet)
	r.HandleFunc("/password", h.HandleChangePassword).Methods(http.MethodPost)
	r.HandleFunc("/token", h.HandleAccessToken).Methods(http.MethodPost)
	r.HandleFunc("/{provider}/", h.HandleOAuthBegin).Methods(http.MethodGet)
	r.HandleFunc("/{provider}/callback/", h.HandleOAuthCallback).Methods(http.MethodGet)
	if h.Session != nil {
		return h.Session.LoadAndSave(r)
	}
	return r
}

// HandleLogin processes email/password sign-in
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	email, password, err := h.parseCredentials(r)
	if err != nil {
		h.handleAuthError(err, w, r)
		return
	}

	token, signInErr := h.Auth.SignIn(r.Context(), email, password)
	if signInErr != nil {
		if errors.Is(signInErr, ErrInvalidCredentials) {
			h.handleAuthError(NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"), w, r)
		} else {
			log.Println("error validating credentials: ", signInErr)
			h.handleAuthError(NewAuthError(ErrCodeServerError, "Login failed", ""), w, r)
		}
		return
	}

	h.Auth.WriteSession(w, token)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"expires": token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// HandleSignup processes user registration and signs the new user in
func (h *Handlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	name, email, password, err := h.parseSignup(r)
	if err != nil {
		h.handleAuthError(err, w, r)
		return
	}

	user, signUpErr := h.Auth.Credentials.SignUp(r.Context(), name, email, password)
	if signUpErr != nil {
		var authErr *AuthError
		switch {
		case errors.As(signUpErr, &authErr):
			h.handleAuthError(authErr, w, r)
		case errors.Is(signUpErr, ErrUserExists):
			h.handleAuthError(NewAuthError(ErrCodeEmailExists, "Email is already registered", "email"), w, r)
		default:
			log.Println("error creating user: ", signUpErr)
			h.handleAuthError(NewAuthError(ErrCodeServerError, "Signup failed", ""), w, r)
		}
		return
	}

	token, err2 := h.Auth.Sessions.CreateSession(r.Context(), user.ID)
	if err2 != nil {
		// The account exists at this point; report the signup as done and
		// let the client sign in, rather than invite a retry that would
		// just hit the duplicate-email error.
		log.Println("error creating session after signup: ", err2)
		h.writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"user_id":   user.ID,
			"signed_in": false,
		})
		return
	}

	h.Auth.WriteSession(w, token)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user_id": user.ID,
		"expires": token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// HandleLogout revokes the current session and clears the cookie. With a
// "to" query parameter it redirects there afterwards.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.SignOut(w, r); err != nil {
		log.Println("error revoking session: ", err)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleChangePassword updates the password of the signed-in user. The
// "revoke_sessions" flag additionally logs the user out everywhere else and
// issues a fresh session for this client.
func (h *Handlers) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	result, err := h.Auth.Auth(r)
	if err != nil || result.Anonymous() {
		h.writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": "Not authenticated", "code": ErrCodeUnauthorized,
		})
		return
	}

	current, newPassword, revoke, parseErr := h.parsePasswordChange(r)
	if parseErr != nil {
		h.handleAuthError(parseErr, w, r)
		return
	}

	changeErr := h.Auth.Credentials.ChangePassword(r.Context(), result.User.ID, current, newPassword)
	if changeErr != nil {
		var authErr *AuthError
		switch {
		case errors.As(changeErr, &authErr):
			h.handleAuthError(authErr, w, r)
		case errors.Is(changeErr, ErrIncorrectPassword):
			h.writeJSON(w, http.StatusForbidden, map[string]any{
				"error": "Current password is incorrect", "code": ErrCodeIncorrectPassword, "field": "current_password",
			})
		default:
			log.Println("error changing password: ", changeErr)
			h.handleAuthError(NewAuthError(ErrCodeServerError, "Password change failed", ""), w, r)
		}
		return
	}

	if revoke {
		if err := h.Auth.Sessions.InvalidateAllTokens(r.Context(), result.User.ID); err != nil {
			log.Println("error revoking sessions: ", err)
		}
		token, err := h.Auth.Sessions.CreateSession(r.Context(), result.User.ID)
		if err == nil {
			h.Auth.WriteSession(w, token)
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleAccessToken mints an API access token for the signed-in user
func (h *Handlers) HandleAccessToken(w http.ResponseWriter, r *http.Request) {
	result, err := h.Auth.Auth(r)
	if err != nil || result.Anonymous() {
		h.writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": "Not authenticated", "code": ErrCodeUnauthorized,
		})
		return
	}
	h.Auth.RefreshSession(w, result)

	accessToken, expiresIn, err := h.Auth.IssueAccessToken(result.User.ID)
	if err != nil {
		log.Println("error issuing access token: ", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "Failed to issue token", "code": ErrCodeServerError,
		})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	})
}

// HandleOAuthBegin starts an OAuth flow by redirecting to the provider's
// consent page with a fresh anti-forgery state cookie. A callbackURL query
// parameter is remembered in the scs session for the post-login redirect.
func (h *Handlers) HandleOAuthBegin(w http.ResponseWriter, r *http.Request) {
	provider, err := h.Auth.Provider(mux.Vars(r)["provider"])
	if err != nil {
		http.Error(w, `{"error": "Unknown provider"}`, http.StatusNotFound)
		return
	}

	if callbackURL := r.URL.Query().Get("callbackURL"); callbackURL != "" && h.Session != nil {
		h.Session.Put(r.Context(), callbackURLKey, callbackURL)
	}

	state, err := generateOAuthState(w)
	if err != nil {
		slog.Error("failed to generate oauth state", "err", err)
		http.Error(w, `{"error": "Internal error"}`, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// HandleOAuthCallback completes an OAuth flow: it verifies the state cookie,
// exchanges the code for a profile, resolves the user (or links the
// provider to the user recorded by StartLinkOAuth) and issues a session.
func (h *Handlers) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := h.Auth.Provider(mux.Vars(r)["provider"])
	if err != nil {
		http.Error(w, `{"error": "Unknown provider"}`, http.StatusNotFound)
		return
	}

	stateCookie, _ := r.Cookie(oauthStateCookie)
	clearOAuthState(w)
	if stateCookie == nil || r.FormValue("state") != stateCookie.Value {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	profile, err := provider.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		slog.Info("oauth code exchange failed", "provider", provider.Name(), "err", err)
		http.Redirect(w, r, h.FailureURL, http.StatusTemporaryRedirect)
		return
	}

	// linking mode: attach the provider to an already signed-in user
	if linkingUserID := h.LinkingUserID(r); linkingUserID != "" {
		h.handleLinkCallback(w, r, linkingUserID, profile)
		return
	}

	token, _, err := h.Auth.SignInWithProfile(r.Context(), profile)
	if err != nil {
		if errors.Is(err, ErrProfileIncomplete) {
			http.Error(w, `{"error": "Provider did not supply a usable profile"}`, http.StatusBadRequest)
			return
		}
		slog.Info("oauth sign-in failed", "provider", provider.Name(), "err", err)
		http.Redirect(w, r, h.FailureURL, http.StatusTemporaryRedirect)
		return
	}

	h.Auth.WriteSession(w, token)
	http.Redirect(w, r, h.popCallbackURL(r), http.StatusFound)
}

// StartLinkOAuth records the signed-in user before redirecting them to a
// provider, so the callback links the provider account instead of logging
// in. Call it from your "Link <Provider>" button handler.
func (h *Handlers) StartLinkOAuth(r *http.Request, userID string) {
	if h.Session != nil {
		h.Session.Put(r.Context(), linkingUserKey, userID)
	}
}

// LinkingUserID retrieves and clears the linking user recorded by
// StartLinkOAuth. Empty means a normal login flow.
func (h *Handlers) LinkingUserID(r *http.Request) string {
	if h.Session == nil {
		return ""
	}
	return h.Session.PopString(r.Context(), linkingUserKey)
}

// handleLinkCallback links an OAuth account to an existing user. The
// provider email must match the user's email, otherwise a stranger's
// provider account could be attached to a logged-in user.
func (h *Handlers) handleLinkCallback(w http.ResponseWriter, r *http.Request, userID string, profile *Profile) {
	user, err := h.Auth.Store.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error": "User not found"}`, http.StatusNotFound)
		return
	}

	if profile.Email == "" || !strings.EqualFold(profile.Email, user.Email) {
		log.Printf("OAuth link rejected: provider email %q does not match user %s", profile.Email, userID)
		http.Error(w, `{"error": "Provider email does not match your account email"}`, http.StatusForbidden)
		return
	}

	if _, err := h.Auth.Resolver.GetOrCreateUser(r.Context(), profile); err != nil {
		log.Printf("error linking %s account to user %s: %v", profile.Provider, userID, err)
		http.Error(w, `{"error": "Failed to link account"}`, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.popCallbackURL(r), http.StatusFound)
}

// popCallbackURL consumes the recorded callback URL, falling back to
// SuccessURL. Only relative URLs are honored to keep redirects on-site.
func (h *Handlers) popCallbackURL(r *http.Request) string {
	if h.Session == nil {
		return h.SuccessURL
	}
	callbackURL := h.Session.PopString(r.Context(), callbackURLKey)
	if callbackURL == "" {
		return h.SuccessURL
	}
	if u, err := url.Parse(callbackURL); err != nil || u.Scheme != "" || u.Host != "" {
		return h.SuccessURL
	}
	return callbackURL
}

func (h *Handlers) parseCredentials(r *http.Request) (email, password string, err *AuthError) {
	fields, parseErr := parseBody(r)
	if parseErr != nil {
		return "", "", parseErr
	}
	email, password = fields["email"], fields["password"]
	if email == "" || password == "" {
		return "", "", NewAuthError(ErrCodeMissingField, "Email and password required", "email")
	}
	return email, password, nil
}

func (h *Handlers) parseSignup(r *http.Request) (name, email, password string, err *AuthError) {
	fields, parseErr := parseBody(r)
	if parseErr != nil {
		return "", "", "", parseErr
	}
	return fields["name"], fields["email"], fields["password"], nil
}

func (h *Handlers) parsePasswordChange(r *http.Request) (current, newPassword string, revoke bool, err *AuthError) {
	fields, parseErr := parseBody(r)
	if parseErr != nil {
		return "", "", false, parseErr
	}
	current = fields["current_password"]
	newPassword = fields["new_password"]
	revoke = fields["revoke_sessions"] == "true"
	if newPassword == "" {
		return "", "", false, NewAuthError(ErrCodeMissingField, "New password required", "new_password")
	}
	return current, newPassword, revoke, nil
}

// parseBody reads login/signup fields from a form or JSON body
func parseBody(r *http.Request) (map[string]string, *AuthError) {
	fields := map[string]string{}
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, NewAuthError("parse_error", "Error parsing form", "")
		}
		for key := range r.Form {
			fields[key] = r.FormValue(key)
		}
		return fields, nil
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
		return nil, NewAuthError("parse_error", "Invalid post body", "")
	}
	for key, value := range data {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case bool:
			fields[key] = fmt.Sprintf("%t", v)
		}
	}
	return fields, nil
}

// handleAuthError renders err via the configured handler or as default JSON
func (h *Handlers) handleAuthError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if h.OnAuthError != nil && h.OnAuthError(err, w, r) {
		return
	}
	statusCode := http.StatusBadRequest
	if err.Code == ErrCodeInvalidCreds {
		statusCode = http.StatusUnauthorized
	}
	h.writeJSON(w, statusCode, map[string]any{
		"error": err.Message,
		"code":  err.Code,
		"field": err.Field,
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// generateOAuthState creates the anti-forgery state value and sets it as a
// short-lived cookie. A predictable state is worse than no flow at all, so
// entropy failure aborts the flow.
func generateOAuthState(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
	})
	return state, nil
}

// clearOAuthState deletes the state cookie once the flow is settled.
func clearOAuthState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, MaxAge: -1, Path: "/", HttpOnly: true})
}
