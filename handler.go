package medley

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes wires the enabled flows onto a router. A nil flow is simply not
// mounted, so provider enablement is configuration by omission.
type Routes struct {
	Auth   *Auth
	OpenID *OpenIDAuth
	Broker *BrokerAuth
	Email  *EmailAuth

	// OAuth handlers keyed by mount prefix, e.g. "facebook" -> handler
	// serving /oauth/facebook/ and /oauth/facebook/callback/
	OAuth map[string]http.Handler
}

// Handler builds the HTTP surface: status, logout, and one subtree per
// enabled flow. Paths are relative to wherever the caller mounts this
// handler.
func (rt *Routes) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", rt.Auth.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/logout", rt.Auth.HandleLogout).Methods(http.MethodGet, http.MethodPost)

	if rt.OpenID != nil {
		r.HandleFunc("/openid/forward", rt.OpenID.HandleForward).Methods(http.MethodPost)
		r.HandleFunc("/openid/complete", rt.OpenID.HandleComplete).Methods(http.MethodGet)
	}
	if rt.Broker != nil {
		r.HandleFunc("/broker/callback", rt.Broker.HandleCallback).Methods(http.MethodGet, http.MethodPost)
	}
	if rt.Email != nil {
		r.HandleFunc("/email/register", rt.Email.HandleRegister).Methods(http.MethodPost)
		r.HandleFunc("/email/verify", rt.Email.HandleVerify).Methods(http.MethodGet)
		r.HandleFunc("/email/login", rt.Email.HandleLogin).Methods(http.MethodPost)
		r.HandleFunc("/email/setpassword", rt.Email.HandleSetPassword).Methods(http.MethodPost)
	}
	for prefix, handler := range rt.OAuth {
		p := "/oauth/" + prefix
		// the bare prefix redirects into the subtree, keeping the query
		// string (it may carry a dest param)
		r.HandleFunc(p, func(w http.ResponseWriter, req *http.Request) {
			target := p + "/"
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			http.Redirect(w, req, target, http.StatusMovedPermanently)
		})
		r.PathPrefix(p + "/").Handler(http.StripPrefix(p, handler))
	}
	return r
}
