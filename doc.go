// Package authgate provides session and credential management for
// server-rendered Go web applications.
//
// AuthGate issues opaque session tokens, stores only their hashes, and
// mediates both password-based and OAuth-based identity resolution. The
// surrounding application keeps ownership of routing, rendering and
// persistence; the library depends on storage only through the Store
// contract.
//
// # Architecture
//
// User: an identity record (id, name, email, image).
//
// Account: a link between a user and one authentication provider. The
// email/password method is the "credentials" provider and stores a bcrypt
// digest; OAuth providers store only the provider's account id.
//
// Session: the server-held half of a login. The client holds the raw
// 160-bit token; the server holds its sha256 digest, the owning user id and
// the expiry. Either side can unilaterally end a session, and validity
// requires both to agree.
//
// # Basic Usage
//
// Construct the facade over a store and configuration:
//
//	store := fs.NewStore("/path/to/storage")
//	auth := authgate.New(store, &authgate.Options{
//	    SessionMaxAge:    7 * 24 * time.Hour,
//	    RenewalThreshold: 24 * time.Hour,
//	    SecureCookies:    true,
//	    Providers: map[string]authgate.Provider{
//	        "google": oauth2.NewGoogle("", "", ""),
//	    },
//	})
//
// Resolve the current session in a page handler:
//
//	result, err := auth.Auth(r)
//	if err == nil && !result.Anonymous() {
//	    // result.User is signed in
//	    auth.RefreshSession(w, result) // honor rolling renewal
//	}
//
// Mount the HTTP surface:
//
//	handlers := &authgate.Handlers{Auth: auth, Session: scs.New()}
//	mux.PathPrefix("/auth").Handler(http.StripPrefix("/auth", handlers.Handler()))
//
// # Sessions
//
// Tokens are 20 random bytes, base32-encoded. The store never sees a raw
// token: lookups key on the sha256 digest, so a leaked database cannot be
// replayed against live sessions. Sessions expire after SessionMaxAge with
// rolling renewal: when a validated session's remaining TTL drops below
// RenewalThreshold a replacement token is issued and the caller re-sets the
// cookie, keeping active users signed in without re-authentication.
//
// # Security
//
// Passwords are hashed with bcrypt. Credential verification takes the same
// time whether the email exists or not, so response latency does not reveal
// which addresses are registered. Session cookies are HttpOnly and SameSite
// Lax, Secure when Options.SecureCookies is set.
//
// # Store Implementations
//
// stores/fs is a JSON-file store for development and tests. stores/gorm and
// stores/gae back the contract with a SQL database and Google Cloud
// Datastore for production use.
package authgate
