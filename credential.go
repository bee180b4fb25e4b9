package medley

import (
	"encoding/json"
	"fmt"
)

// AuthType identifies which provider flow produced a credential. It also
// determines which optional fields of a Credential may be populated.
type AuthType string

const (
	AuthOpenID AuthType = "openid" // federated identifier exchange
	AuthBroker AuthType = "broker" // third-party identity broker token exchange
	AuthEmail  AuthType = "email"  // local email/password account
	AuthOAuth  AuthType = "oauth"  // OAuth-style code/token exchange provider
)

// Credential is the normalized authenticated-identity record that every
// provider flow converges on. The meaning of Identifier depends on AuthType:
// an OpenID URL, a broker-assigned id, an email address, or a prefixed
// provider id.
//
// Only the email flow sets LocalID (the id the local account store issued)
// and only the oauth flow sets ProviderToken; serialization enforces this.
type Credential struct {
	Identifier    string   `json:"identifier"`
	AuthType      AuthType `json:"auth_type"`
	Email         *string  `json:"email,omitempty"`
	DisplayName   *string  `json:"display_name,omitempty"`
	LocalID       *int64   `json:"local_id,omitempty"`
	ProviderToken string   `json:"provider_token,omitempty"`
}

// normalized returns a copy with fields not owned by the credential's
// AuthType cleared, so that illegal combinations never reach the session.
func (c *Credential) normalized() Credential {
	out := *c
	if out.AuthType != AuthOAuth {
		out.ProviderToken = ""
	}
	if out.AuthType != AuthEmail {
		out.LocalID = nil
	}
	return out
}

// Equal reports whether two credentials carry the same identity, comparing
// optional fields by value rather than by pointer.
func (c *Credential) Equal(other *Credential) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Identifier != other.Identifier || c.AuthType != other.AuthType ||
		c.ProviderToken != other.ProviderToken {
		return false
	}
	if !eqStrPtr(c.Email, other.Email) || !eqStrPtr(c.DisplayName, other.DisplayName) {
		return false
	}
	if (c.LocalID == nil) != (other.LocalID == nil) {
		return false
	}
	if c.LocalID != nil && *c.LocalID != *other.LocalID {
		return false
	}
	return true
}

func eqStrPtr(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// Encode serializes the credential for storage in the session slot.
// Decode(Encode(c)) always yields a credential Equal to the normalized c.
func (c *Credential) Encode() (string, error) {
	norm := c.normalized()
	data, err := json.Marshal(&norm)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential: %w", err)
	}
	return string(data), nil
}

// DecodeCredential parses a credential previously produced by Encode.
func DecodeCredential(encoded string) (*Credential, error) {
	var cred Credential
	if err := json.Unmarshal([]byte(encoded), &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	if cred.Identifier == "" || cred.AuthType == "" {
		return nil, fmt.Errorf("credential missing identifier or auth type")
	}
	return &cred, nil
}

// Label returns the best user-facing name for the credential: the display
// name when the provider supplied one, otherwise the identifier.
func (c *Credential) Label() string {
	if c.DisplayName != nil && *c.DisplayName != "" {
		return *c.DisplayName
	}
	return c.Identifier
}
