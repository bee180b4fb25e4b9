// Package grpc carries the authenticated credential identifier between
// HTTP handlers and gRPC services via metadata, and validates the auth
// tokens minted at login.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys for authentication context
const (
	// DefaultMetadataKeyIdentifier is the gRPC metadata key for the
	// authenticated credential identifier
	DefaultMetadataKeyIdentifier = "x-auth-identifier"

	// DefaultMetadataKeyAuthToken is the gRPC metadata key carrying the
	// auth token issued at login
	DefaultMetadataKeyAuthToken = "authorization"
)

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyIdentifier defaults to "x-auth-identifier". Trusted only
	// when no VerifyToken is configured on the interceptor (e.g. behind a
	// gateway that already validated the login).
	MetadataKeyIdentifier string

	// MetadataKeyAuthToken defaults to "authorization"
	MetadataKeyAuthToken string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyIdentifier: DefaultMetadataKeyIdentifier,
		MetadataKeyAuthToken:  DefaultMetadataKeyAuthToken,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyIdentifier == "" {
		c.MetadataKeyIdentifier = DefaultMetadataKeyIdentifier
	}
	if c.MetadataKeyAuthToken == "" {
		c.MetadataKeyAuthToken = DefaultMetadataKeyAuthToken
	}
}

// IdentifierFromContext extracts the authenticated identifier from the
// gRPC context metadata. Returns empty string when unauthenticated.
func IdentifierFromContext(ctx context.Context) string {
	return IdentifierFromContextWithConfig(ctx, nil)
}

// IdentifierFromContextWithConfig extracts the identifier using the
// specified config.
func IdentifierFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeyIdentifier); len(values) > 0 {
		return values[0]
	}
	return ""
}

// IdentifierToOutgoingContext adds the identifier to outgoing gRPC
// metadata so downstream services see the same login.
func IdentifierToOutgoingContext(ctx context.Context, identifier string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyIdentifier, identifier)
}

// AuthTokenToOutgoingContext adds a login auth token to outgoing gRPC
// metadata for server-side verification.
func AuthTokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthToken, "Bearer "+token)
}

// IsAuthenticated returns true if there is an authenticated identifier in
// the context.
func IsAuthenticated(ctx context.Context) bool {
	return IdentifierFromContext(ctx) != ""
}
