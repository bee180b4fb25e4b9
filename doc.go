// Package medley authenticates users through interchangeable identity
// providers and produces a single normalized Credential the rest of an
// application can trust.
//
// Four provider flows are built in: federated identifier exchange (OpenID),
// an OAuth-style code/token exchange (see the oauth2 subpackage), a
// third-party identity broker, and a local email/password scheme backed by
// a pluggable account store. All flows converge on the Auth orchestrator,
// which owns the session credential slot, the post-login callback, and the
// "return to where the user started" redirect across multi-step provider
// round-trips.
//
// # Basic Usage
//
// Create the orchestrator around a session store:
//
//	sessionManager := scs.New()
//	auth := medley.New("MyApp", medley.NewSCSSessionStore(sessionManager))
//	auth.OnLogin = func(cred *medley.Credential, extra map[string]string) error {
//	    // record the login, provision application state, etc.
//	    return nil
//	}
//
// Configure the flows you need and mount them:
//
//	store := stores.NewMemoryAccountStore(&medley.ConsoleEmailSender{})
//	routes := &medley.Routes{
//	    Auth:  auth,
//	    Email: &medley.EmailAuth{Auth: auth, Store: store, BaseURL: "https://myapp.com/auth"},
//	}
//	mux.Handle("/auth/", http.StripPrefix("/auth", sessionManager.LoadAndSave(routes.Handler())))
//
// Guard application routes with the orchestrator:
//
//	func profile(w http.ResponseWriter, r *http.Request) {
//	    cred := auth.RequireCredential(w, r)
//	    if cred == nil {
//	        return // redirected to login; the original URL is remembered
//	    }
//	    ...
//	}
package medley
