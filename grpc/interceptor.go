package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// VerifyTokenFunc validates an auth token and returns the credential
// identifier it was issued for. Wire it to medley.Auth.VerifyToken.
type VerifyTokenFunc func(token string) (identifier string, err error)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// VerifyToken, when set, authenticates requests from a bearer token in
	// the auth token metadata key. When nil, the identifier metadata key
	// is trusted as-is.
	VerifyToken VerifyTokenFunc

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but IdentifierFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// OptionalAuthConfig returns a config that resolves the identifier when
// present but never rejects a request.
func OptionalAuthConfig() *InterceptorConfig {
	config := DefaultInterceptorConfig()
	config.RequireAuth = false
	return config
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig()
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

func (c *InterceptorConfig) ensure() {
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that resolves the
// authenticated identifier and enforces RequireAuth.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	if config == nil {
		config = DefaultInterceptorConfig()
	}
	config.ensure()

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, identifier := resolveIdentifier(ctx, config)
		if config.RequireAuth && !config.PublicMethods[info.FullMethod] && identifier == "" {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns the stream counterpart of UnaryAuthInterceptor.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	if config == nil {
		config = DefaultInterceptorConfig()
	}
	config.ensure()

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		_, identifier := resolveIdentifier(ss.Context(), config)
		if config.RequireAuth && !config.PublicMethods[info.FullMethod] && identifier == "" {
			return status.Error(codes.Unauthenticated, "authentication required")
		}
		return handler(srv, ss)
	}
}

// resolveIdentifier authenticates the request. With a verifier configured,
// the bearer token is validated and its subject written into the
// identifier metadata key so handlers read one consistent value.
func resolveIdentifier(ctx context.Context, config *InterceptorConfig) (context.Context, string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, ""
	}

	if config.VerifyToken != nil {
		token := bearerToken(md.Get(config.Config.MetadataKeyAuthToken))
		if token == "" {
			return ctx, ""
		}
		identifier, err := config.VerifyToken(token)
		if err != nil || identifier == "" {
			return ctx, ""
		}
		md = md.Copy()
		md.Set(config.Config.MetadataKeyIdentifier, identifier)
		return metadata.NewIncomingContext(ctx, md), identifier
	}

	if values := md.Get(config.Config.MetadataKeyIdentifier); len(values) > 0 {
		return ctx, values[0]
	}
	return ctx, ""
}

func bearerToken(values []string) string {
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), "bearer ") {
			return strings.TrimSpace(v[len("bearer "):])
		}
	}
	return ""
}
