package medley

import (
	"log"
	"net/http"
	"net/url"
)

// OpenIDClient wraps provider discovery and response verification. The
// wire-level protocol details live entirely behind this interface.
type OpenIDClient interface {
	// ForwardURL computes the provider redirect URL for a user-supplied
	// identifier, bound to the given callback URL.
	ForwardURL(identifier, callbackURL string) (string, error)

	// Verify checks the provider's callback parameters and returns the
	// verified identifier.
	Verify(params url.Values) (string, error)
}

// OpenIDAuth authenticates through federated identifier exchange: the user
// supplies an identifier, is forwarded to their provider, and comes back on
// the callback URL where the response is verified.
type OpenIDAuth struct {
	Auth   *Auth
	Client OpenIDClient

	// CallbackURL is the absolute URL of HandleComplete, sent to the provider
	CallbackURL string

	// EntryRoute is the identifier-entry form; provider errors redirect
	// here with a message. Defaults to the orchestrator's login route.
	EntryRoute string

	// IdentifierField defaults to "openid_identifier"
	IdentifierField string
}

func (o *OpenIDAuth) entryRoute() string {
	if o.EntryRoute != "" {
		return o.EntryRoute
	}
	return o.Auth.EnsureDefaults().LoginRoute
}

func (o *OpenIDAuth) identifierField() string {
	if o.IdentifierField != "" {
		return o.IdentifierField
	}
	return "openid_identifier"
}

// HandleForward accepts the identifier form submission and redirects to
// the provider.
func (o *OpenIDAuth) HandleForward(w http.ResponseWriter, r *http.Request) {
	if o.Client == nil {
		writeAuthError(w, NewAuthError(ErrCodeNotEnabled, "OpenID login not configured", ""), http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Error parsing form", ""), http.StatusBadRequest)
		return
	}
	identifier := r.FormValue(o.identifierField())
	if identifier == "" {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Identifier required", o.identifierField()), http.StatusBadRequest)
		return
	}

	forwardURL, err := o.Client.ForwardURL(identifier, o.CallbackURL)
	if err != nil {
		log.Println("error computing provider forward url: ", err)
		o.Auth.PutMessage(r, "Error connecting to your identity provider")
		http.Redirect(w, r, o.entryRoute(), http.StatusFound)
		return
	}
	http.Redirect(w, r, forwardURL, http.StatusFound)
}

// HandleComplete is the provider callback endpoint.
func (o *OpenIDAuth) HandleComplete(w http.ResponseWriter, r *http.Request) {
	if o.Client == nil {
		writeAuthError(w, NewAuthError(ErrCodeNotEnabled, "OpenID login not configured", ""), http.StatusNotFound)
		return
	}
	outcome := o.completeStep(r.URL.Query())
	o.Auth.Finish(w, r, outcome, nil, o.Auth.DefaultDest)
}

// completeStep verifies the provider response. Any provider-reported error
// sends the user back to the identifier-entry state; there is no retry
// limit.
func (o *OpenIDAuth) completeStep(params url.Values) Outcome {
	identifier, err := o.Client.Verify(params)
	if err != nil {
		log.Println("openid verification failed: ", err)
		return RedirectOutcome(o.entryRoute(), "Unable to verify your identity")
	}
	return ContinueOutcome(&Credential{
		AuthType:   AuthOpenID,
		Identifier: identifier,
	})
}
