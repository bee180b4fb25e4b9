package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MetadataKeyIdentifier != DefaultMetadataKeyIdentifier {
		t.Errorf("expected default identifier key, got %q", config.MetadataKeyIdentifier)
	}
	if config.MetadataKeyAuthToken != DefaultMetadataKeyAuthToken {
		t.Errorf("expected default auth token key, got %q", config.MetadataKeyAuthToken)
	}
}

func TestEnsureDefaults(t *testing.T) {
	config := &Config{}
	config.EnsureDefaults()
	if config.MetadataKeyIdentifier != DefaultMetadataKeyIdentifier {
		t.Error("expected identifier key to be defaulted")
	}

	custom := &Config{MetadataKeyIdentifier: "x-custom"}
	custom.EnsureDefaults()
	if custom.MetadataKeyIdentifier != "x-custom" {
		t.Error("expected custom identifier key to be preserved")
	}
}

func TestIdentifierFromContext(t *testing.T) {
	t.Run("no metadata", func(t *testing.T) {
		if got := IdentifierFromContext(context.Background()); got != "" {
			t.Errorf("expected empty identifier, got %q", got)
		}
	})

	t.Run("with identifier", func(t *testing.T) {
		md := metadata.Pairs(DefaultMetadataKeyIdentifier, "user@example.com")
		ctx := metadata.NewIncomingContext(context.Background(), md)
		if got := IdentifierFromContext(ctx); got != "user@example.com" {
			t.Errorf("expected identifier, got %q", got)
		}
	})

	t.Run("custom key", func(t *testing.T) {
		md := metadata.Pairs("x-custom", "user@example.com")
		ctx := metadata.NewIncomingContext(context.Background(), md)
		config := &Config{MetadataKeyIdentifier: "x-custom"}
		if got := IdentifierFromContextWithConfig(ctx, config); got != "user@example.com" {
			t.Errorf("expected identifier via custom key, got %q", got)
		}
	})
}

func TestIsAuthenticated(t *testing.T) {
	if IsAuthenticated(context.Background()) {
		t.Error("expected unauthenticated for empty context")
	}

	md := metadata.Pairs(DefaultMetadataKeyIdentifier, "user@example.com")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	if !IsAuthenticated(ctx) {
		t.Error("expected authenticated with identifier metadata")
	}
}

func TestOutgoingContext(t *testing.T) {
	ctx := IdentifierToOutgoingContext(context.Background(), "user@example.com")
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	if got := md.Get(DefaultMetadataKeyIdentifier); len(got) == 0 || got[0] != "user@example.com" {
		t.Errorf("expected identifier in outgoing metadata, got %v", got)
	}

	ctx = AuthTokenToOutgoingContext(context.Background(), "tok123")
	md, _ = metadata.FromOutgoingContext(ctx)
	if got := md.Get(DefaultMetadataKeyAuthToken); len(got) == 0 || got[0] != "Bearer tok123" {
		t.Errorf("expected bearer token in outgoing metadata, got %v", got)
	}
}
