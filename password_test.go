package medley_test

import (
	"strings"
	"testing"

	oa "github.com/medleyauth/medley"
)

func TestSaltAndHashFormat(t *testing.T) {
	digest := oa.SaltAndHash("abcde", "password123")

	if !strings.HasPrefix(digest, "abcde") {
		t.Errorf("Expected digest to carry the salt prefix, got %q", digest)
	}
	// salt + 32 hex chars of md5
	if len(digest) != oa.SaltLength+32 {
		t.Errorf("Expected digest length %d, got %d", oa.SaltLength+32, len(digest))
	}
	// deterministic for a fixed salt
	if digest != oa.SaltAndHash("abcde", "password123") {
		t.Error("Expected identical digests for identical salt and password")
	}
	if digest == oa.SaltAndHash("edcba", "password123") {
		t.Error("Expected different digests for different salts")
	}
}

func TestVerifyPassword(t *testing.T) {
	digest := oa.SaltAndHash(oa.GenerateSalt(), "correct-password")

	tests := []struct {
		name     string
		password string
		digest   string
		want     bool
	}{
		{"correct password", "correct-password", digest, true},
		{"wrong password", "wrong-password", digest, false},
		{"empty password", "", digest, false},
		{"empty digest", "correct-password", "", false},
		{"digest shorter than salt", "correct-password", "abc", false},
		{"corrupted digest", "correct-password", digest[:len(digest)-1] + "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := oa.VerifyPassword(tt.password, tt.digest); got != tt.want {
				t.Errorf("VerifyPassword(%q, %q) = %v, want %v", tt.password, tt.digest, got, tt.want)
			}
		})
	}
}

func TestGenerateSalt(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		salt := oa.GenerateSalt()
		if len(salt) != oa.SaltLength {
			t.Fatalf("Expected salt length %d, got %d", oa.SaltLength, len(salt))
		}
		for _, c := range salt {
			isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			if !isAlnum {
				t.Fatalf("Unexpected salt character %q in %q", c, salt)
			}
		}
		seen[salt] = true
	}
	// 20 draws from a 62^5 space colliding down to a couple of values
	// would mean the source is broken
	if len(seen) < 2 {
		t.Error("Expected some variety in generated salts")
	}
}

func TestLegacyHasher(t *testing.T) {
	hasher := oa.LegacyHasher{}
	digest, err := hasher.Hash("my-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !hasher.Verify("my-password", digest) {
		t.Error("Expected hasher to verify its own digest")
	}
	if hasher.Verify("other-password", digest) {
		t.Error("Expected wrong password to fail verification")
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher := oa.BcryptHasher{Cost: 4} // minimum cost keeps the test fast
	digest, err := hasher.Hash("my-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !hasher.Verify("my-password", digest) {
		t.Error("Expected hasher to verify its own digest")
	}
	if hasher.Verify("other-password", digest) {
		t.Error("Expected wrong password to fail verification")
	}
	// legacy digests are not bcrypt digests
	if hasher.Verify("my-password", oa.SaltAndHash("abcde", "my-password")) {
		t.Error("Expected bcrypt hasher to reject a legacy digest")
	}
}
