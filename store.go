package medley

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// EmailAccount is a local account in the credential store. An account is
// created unverified; Verified flips to true exactly once, on a successful
// verification-key match, and a password digest is only set after that.
type EmailAccount struct {
	ID             int64
	Email          string
	PasswordDigest string // empty until the first password is set
	Verified       bool
	VerifyKey      string
}

// CanLogin reports whether password login is possible at all for this
// account: it must be verified and have a digest on file.
func (a *EmailAccount) CanLogin() bool {
	return a != nil && a.Verified && a.PasswordDigest != ""
}

// EmailAccountStore is the capability set a local-account backend must
// provide. Lookups report absence through their bool return; "not found" is
// the only failure mode callers see from reads. The policy that a password
// may only be set on a verified account lives in the email flow, not here.
//
// Implementations must assign ids atomically under concurrent registration.
type EmailAccountStore interface {
	// AddUnverified creates a new unverified account and returns its id.
	AddUnverified(email, verifyKey string) (int64, error)

	// SendVerifyEmail delivers the verification notification. Delivery
	// failure is logged by the implementation, not surfaced to the caller.
	SendVerifyEmail(email, verifyKey, verifyURL string)

	// VerifyKey returns the verification key for an account id.
	VerifyKey(accountID int64) (string, bool)

	// Email returns the address registered under an account id.
	Email(accountID int64) (string, bool)

	// GetEmailAccount looks up an account by address.
	GetEmailAccount(email string) (*EmailAccount, bool)

	// VerifyAccount marks the account verified. Safe to call on an
	// already-verified account.
	VerifyAccount(accountID int64)

	// SetPassword overwrites the account's password digest.
	SetPassword(accountID int64, digest string)
}

// GenerateVerifyKey generates a cryptographically secure verification key.
func GenerateVerifyKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate verification key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
