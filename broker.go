package medley

import (
	"log"
	"net/http"
	"strings"
)

// BrokerClient exchanges a one-time broker token for a verified identifier
// plus whatever extra attributes the broker reports.
type BrokerClient interface {
	ExchangeToken(apiKey, oneTimeToken string) (identifier string, extras map[string]string, err error)
}

// displayNameKeys is the priority order for deriving a display name from
// broker extras.
var displayNameKeys = []string{"verifiedEmail", "email", "displayName", "preferredUsername"}

// BrokerAuth authenticates through a third-party identity broker: the
// broker posts the user back to HandleCallback with a one-time token, which
// is exchanged server-side for the identity.
type BrokerAuth struct {
	Auth   *Auth
	Client BrokerClient
	APIKey string

	// EntryRoute receives the user when the exchange fails. Defaults to
	// the orchestrator's login route.
	EntryRoute string

	// TokenField defaults to "token"; DestField to "dest"
	TokenField string
	DestField  string
}

func (b *BrokerAuth) entryRoute() string {
	if b.EntryRoute != "" {
		return b.EntryRoute
	}
	return b.Auth.EnsureDefaults().LoginRoute
}

func (b *BrokerAuth) tokenField() string {
	if b.TokenField != "" {
		return b.TokenField
	}
	return "token"
}

func (b *BrokerAuth) destField() string {
	if b.DestField != "" {
		return b.DestField
	}
	return "dest"
}

// paramValue reads a parameter from the form body first, then the query
// string. The precedence is deliberate and documented: brokers POST the
// token, so the form value wins when both are present.
func paramValue(r *http.Request, name string) string {
	if v := r.PostFormValue(name); v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}

// HandleCallback is the single-shot broker endpoint.
func (b *BrokerAuth) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if b.Client == nil {
		writeAuthError(w, NewAuthError(ErrCodeNotEnabled, "Broker login not configured", ""), http.StatusNotFound)
		return
	}
	token := paramValue(r, b.tokenField())
	if token == "" {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Token required", b.tokenField()), http.StatusBadRequest)
		return
	}

	identifier, extras, err := b.Client.ExchangeToken(b.APIKey, token)
	if err != nil {
		log.Println("broker token exchange failed: ", err)
		b.Auth.PutMessage(r, "Unable to verify your identity")
		http.Redirect(w, r, b.entryRoute(), http.StatusFound)
		return
	}

	cred := &Credential{
		AuthType:   AuthBroker,
		Identifier: identifier,
	}
	for _, key := range displayNameKeys {
		if v := extras[key]; v != "" {
			name := v
			cred.DisplayName = &name
			break
		}
	}
	// The broker only vouches for addresses it reports as verified
	if email := extras["verifiedEmail"]; email != "" {
		cred.Email = &email
	}

	if err := b.Auth.CompleteLogin(w, r, cred, extras); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	dest := strings.TrimPrefix(paramValue(r, b.destField()), "#")
	if dest != "" {
		http.Redirect(w, r, dest, http.StatusFound)
		return
	}
	b.Auth.RedirectToUltimateDestination(w, r, b.Auth.DefaultDest)
}
