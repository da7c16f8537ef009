// Package grpc provides authentication for gRPC services backed by authgate.
// Interceptors resolve a session token or API access token from incoming
// metadata and make the authenticated user ID available to handlers via the
// request context.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys for authentication.
// These can be customized via Config if needed.
const (
	// DefaultMetadataKeySessionToken is the default gRPC metadata key for the
	// opaque session token
	DefaultMetadataKeySessionToken = "x-session-token"

	// DefaultMetadataKeyAuthorization is the default gRPC metadata key for
	// bearer API access tokens
	DefaultMetadataKeyAuthorization = "authorization"
)

// Config holds the metadata key configuration for auth.
type Config struct {
	// MetadataKeySessionToken is the gRPC metadata key carrying the session
	// token. Defaults to "x-session-token".
	MetadataKeySessionToken string

	// MetadataKeyAuthorization is the gRPC metadata key carrying a bearer
	// API access token. Defaults to "authorization".
	MetadataKeyAuthorization string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeySessionToken:  DefaultMetadataKeySessionToken,
		MetadataKeyAuthorization: DefaultMetadataKeyAuthorization,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeySessionToken == "" {
		c.MetadataKeySessionToken = DefaultMetadataKeySessionToken
	}
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
}

type contextKey string

const userIDContextKey = contextKey("authgate.userID")

// ContextWithUserID returns a context carrying the authenticated user ID.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts the authenticated user ID set by the
// interceptors. Returns empty string if no user is authenticated.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey).(string)
	return userID
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

// SessionTokenToOutgoingContext adds a session token to outgoing gRPC metadata.
func SessionTokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return SessionTokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKeySessionToken)
}

// SessionTokenToOutgoingContextWithKey adds a session token with a custom key.
func SessionTokenToOutgoingContextWithKey(ctx context.Context, token string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, token)
}

// AccessTokenToOutgoingContext adds a bearer API access token to outgoing
// gRPC metadata.
func AccessTokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthorization, "Bearer "+token)
}

// sessionTokenFromMetadata reads the session token metadata value.
func sessionTokenFromMetadata(md metadata.MD, config *Config) string {
	if values := md.Get(config.MetadataKeySessionToken); len(values) > 0 {
		return values[0]
	}
	return ""
}

// bearerTokenFromMetadata reads a "Bearer <token>" authorization value.
func bearerTokenFromMetadata(md metadata.MD, config *Config) string {
	values := md.Get(config.MetadataKeyAuthorization)
	if len(values) == 0 {
		return ""
	}
	token, ok := strings.CutPrefix(values[0], "Bearer ")
	if !ok {
		return ""
	}
	return token
}
