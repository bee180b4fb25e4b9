package medley

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// SaltLength is the fixed length of the cleartext salt that prefixes every
// legacy digest. Verify relies on this to recover the salt.
const SaltLength = 5

const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSalt returns a SaltLength-character random alphanumeric salt from
// a cryptographically seeded source.
func GenerateSalt() string {
	out := make([]byte, SaltLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(saltAlphabet))))
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			panic(fmt.Sprintf("salt generation failed: %v", err))
		}
		out[i] = saltAlphabet[n.Int64()]
	}
	return string(out)
}

// SaltAndHash produces a self-contained digest: the salt in cleartext
// followed by hex(md5(salt + password)). The salted-MD5 construction with a
// short fixed salt is weak by modern standards; it is retained unchanged so
// digests created by earlier deployments keep verifying. New code should
// use BcryptHasher behind the same PasswordHasher contract.
func SaltAndHash(salt, password string) string {
	sum := md5.Sum([]byte(salt + password))
	return salt + hex.EncodeToString(sum[:])
}

// VerifyPassword recomputes the digest from the salt prefix and compares in
// constant time. A digest shorter than the salt length is simply invalid,
// never an error.
func VerifyPassword(password, digest string) bool {
	if len(digest) < SaltLength {
		return false
	}
	salt := digest[:SaltLength]
	recomputed := SaltAndHash(salt, password)
	return subtle.ConstantTimeCompare([]byte(recomputed), []byte(digest)) == 1
}

// PasswordHasher abstracts digest creation and verification so the hashing
// scheme can be swapped without touching the email flow. Digest formats are
// scheme-specific; a store only ever holds digests from one scheme unless a
// migration recognizes both.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// LegacyHasher is the historical salted-MD5 scheme. It is the default so
// existing accounts keep working.
type LegacyHasher struct{}

func (LegacyHasher) Hash(password string) (string, error) {
	return SaltAndHash(GenerateSalt(), password), nil
}

func (LegacyHasher) Verify(password, digest string) bool {
	return VerifyPassword(password, digest)
}

// BcryptHasher is the upgrade path for new deployments.
type BcryptHasher struct {
	// Cost defaults to bcrypt.DefaultCost when zero
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(out), nil
}

func (h BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
