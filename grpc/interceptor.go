package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	ag "github.com/pavellin/authgate"
)

// Authenticator resolves tokens carried in metadata to user IDs. It is
// satisfied by *authgate.AuthGate.
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (*ag.SessionResult, error)
	VerifyAccessToken(tokenString string) (string, error)
}

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Auth resolves session and API tokens to users.
	Auth Authenticator

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig(auth Authenticator) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Auth:          auth,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(auth Authenticator, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(auth)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(auth Authenticator) *InterceptorConfig {
	config := DefaultInterceptorConfig(auth)
	config.RequireAuth = false
	return config
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that resolves the
// session token or API access token from incoming metadata and injects the
// user ID into the handler context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	if config == nil {
		config = DefaultInterceptorConfig(nil)
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		userID := resolveUserID(ctx, config)

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			if userID == "" {
				return nil, status.Error(codes.Unauthenticated, "authentication required")
			}
		}

		if userID != "" {
			ctx = ContextWithUserID(ctx, userID)
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor that resolves auth
// metadata the same way UnaryAuthInterceptor does.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	if config == nil {
		config = DefaultInterceptorConfig(nil)
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		userID := resolveUserID(ctx, config)

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			if userID == "" {
				return status.Error(codes.Unauthenticated, "authentication required")
			}
		}

		if userID != "" {
			ss = &wrappedStream{ServerStream: ss, ctx: ContextWithUserID(ctx, userID)}
		}
		return handler(srv, ss)
	}
}

// wrappedStream overrides the stream context with the authenticated one.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// resolveUserID authenticates the request from metadata. The session token is
// tried first; a bearer API access token is the fallback.
func resolveUserID(ctx context.Context, config *InterceptorConfig) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok || config.Auth == nil {
		return ""
	}

	if token := sessionTokenFromMetadata(md, config.Config); token != "" {
		result, err := config.Auth.ValidateToken(ctx, token)
		if err == nil && result.User != nil {
			return result.User.ID
		}
	}

	if token := bearerTokenFromMetadata(md, config.Config); token != "" {
		userID, err := config.Auth.VerifyAccessToken(token)
		if err == nil {
			return userID
		}
	}

	return ""
}
