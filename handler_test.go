package medley_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	oa "github.com/medleyauth/medley"
	"github.com/medleyauth/medley/stores"
)

func TestRoutesHandler(t *testing.T) {
	auth, _ := newTestAuth()
	routes := &oa.Routes{
		Auth: auth,
		OpenID: &oa.OpenIDAuth{
			Auth:   auth,
			Client: &fakeOpenIDClient{forwardURL: "https://provider.example.com/auth"},
		},
		Broker: &oa.BrokerAuth{
			Auth:   auth,
			Client: &fakeBrokerClient{identifier: "broker-1"},
		},
		Email: &oa.EmailAuth{
			Auth:    auth,
			Store:   stores.NewMemoryAccountStore(&oa.ConsoleEmailSender{}),
			BaseURL: "http://localhost:8080",
		},
		OAuth: map[string]http.Handler{
			"fake": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("oauth handler saw " + r.URL.Path))
			}),
		},
	}
	handler := routes.Handler()

	tests := []struct {
		name       string
		method     string
		target     string
		form       url.Values
		wantStatus int
		wantBody   string
	}{
		{
			name:       "status",
			method:     http.MethodGet,
			target:     "/status",
			wantStatus: http.StatusOK,
		},
		{
			name:       "logout redirects",
			method:     http.MethodGet,
			target:     "/logout",
			wantStatus: http.StatusFound,
		},
		{
			name:       "openid forward",
			method:     http.MethodPost,
			target:     "/openid/forward",
			form:       url.Values{"openid_identifier": {"https://me.example.com/"}},
			wantStatus: http.StatusFound,
		},
		{
			name:       "openid forward rejects GET",
			method:     http.MethodGet,
			target:     "/openid/forward",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "broker callback",
			method:     http.MethodGet,
			target:     "/broker/callback?token=x",
			wantStatus: http.StatusFound,
		},
		{
			name:       "email register",
			method:     http.MethodPost,
			target:     "/email/register",
			form:       url.Values{"email": {"user@example.com"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "oauth subtree is prefix-stripped",
			method:     http.MethodGet,
			target:     "/oauth/fake/callback",
			wantStatus: http.StatusOK,
			wantBody:   "oauth handler saw /callback",
		},
		{
			name:       "oauth bare prefix redirects into subtree",
			method:     http.MethodGet,
			target:     "/oauth/fake?dest=/private",
			wantStatus: http.StatusMovedPermanently,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			target:     "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.form != nil {
				req = postForm(tt.target, tt.form)
			} else {
				req = httptest.NewRequest(tt.method, tt.target, nil)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("Expected body containing %q, got: %s", tt.wantBody, rr.Body.String())
			}
		})
	}

	t.Run("bare prefix redirect keeps the query string", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/oauth/fake?dest=/private", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if loc := rr.Header().Get("Location"); loc != "/oauth/fake/?dest=/private" {
			t.Errorf("Expected query-preserving redirect, got %s", loc)
		}
	})
}
