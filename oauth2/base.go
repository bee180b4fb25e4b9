// Package oauth2 implements the OAuth-style provider flow: authorize
// redirect, code/token exchange, profile fetch, credential emission.
package oauth2

import (
	"context"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"github.com/medleyauth/medley"
)

// CompleteLoginFunc hands the emitted credential (and provider extras) back
// to the orchestrator. Wire it to Auth.Finish or equivalent.
type CompleteLoginFunc func(cred *medley.Credential, extra map[string]string, w http.ResponseWriter, r *http.Request)

// SaveDestinationFunc records the post-login destination before the user
// leaves for the provider. Wire it to Auth.SaveDestination.
type SaveDestinationFunc func(r *http.Request, dest string)

type BaseOAuth2 struct {
	ClientId      string
	ClientSecret  string
	CallbackURL   string
	CompleteLogin CompleteLoginFunc

	// SaveDestination is optional; without it the destination query param
	// is ignored and the post-login redirect falls back to the default
	SaveDestination SaveDestinationFunc

	// AuthFailureUrl receives the user when the exchange or profile fetch
	// fails. Defaults to "/login".
	AuthFailureUrl string

	// HTTPClient is injectable for tests
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

func NewBaseOAuth2(clientId string, clientSecret string, callbackUrl string, completeLogin CompleteLoginFunc) *BaseOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_CALLBACK_URL")
	}
	out := &BaseOAuth2{
		ClientId:      clientId,
		ClientSecret:  clientSecret,
		CallbackURL:   callbackUrl,
		CompleteLogin: completeLogin,
		mux:           http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
	out.mux.HandleFunc("/", out.handleStart)
	return out
}

func (b *BaseOAuth2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// SetEndpoint overrides the provider endpoint. Used by tests to point the
// flow at a mock server.
func (b *BaseOAuth2) SetEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// SetScopes overrides the permission scopes requested from the provider.
func (b *BaseOAuth2) SetScopes(scopes ...string) {
	b.oauthConfig.Scopes = scopes
}

func (b *BaseOAuth2) authFailureUrl() string {
	if b.AuthFailureUrl != "" {
		return b.AuthFailureUrl
	}
	return "/login"
}

// handleStart records the destination and forwards the user to the
// provider's authorize URL, bound to a fresh state cookie.
func (b *BaseOAuth2) handleStart(w http.ResponseWriter, r *http.Request) {
	if dest := r.URL.Query().Get("dest"); dest != "" && b.SaveDestination != nil {
		b.SaveDestination(r, dest)
	}
	state := generateStateOauthCookie(w)
	http.Redirect(w, r, b.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

// checkState validates the CSRF state cookie against the callback params.
func (b *BaseOAuth2) checkState(w http.ResponseWriter, r *http.Request) bool {
	stateCookie, _ := r.Cookie(oauthStateCookie)
	if stateCookie == nil || r.FormValue("state") != stateCookie.Value {
		http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, MaxAge: -1})
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return false
	}
	return true
}

func (b *BaseOAuth2) getHTTPClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// ExchangeContext returns the context used for the code exchange, carrying
// the injectable HTTP client when set.
func (b *BaseOAuth2) ExchangeContext() context.Context {
	if b.HTTPClient != nil {
		return context.WithValue(context.Background(), oauth2.HTTPClient, b.HTTPClient)
	}
	return context.Background()
}
