package medley_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	oa "github.com/medleyauth/medley"
)

// fakeBrokerClient scripts token exchanges for the flow tests.
type fakeBrokerClient struct {
	identifier string
	extras     map[string]string
	err        error

	gotAPIKey string
	gotToken  string
}

func (c *fakeBrokerClient) ExchangeToken(apiKey, oneTimeToken string) (string, map[string]string, error) {
	c.gotAPIKey = apiKey
	c.gotToken = oneTimeToken
	return c.identifier, c.extras, c.err
}

func newBrokerAuth(client oa.BrokerClient) (*oa.BrokerAuth, *oa.Auth, *mapSession) {
	auth, session := newTestAuth()
	broker := &oa.BrokerAuth{
		Auth:   auth,
		Client: client,
		APIKey: "test-api-key",
	}
	return broker, auth, session
}

func TestBrokerCallback(t *testing.T) {
	t.Run("successful exchange logs in", func(t *testing.T) {
		client := &fakeBrokerClient{
			identifier: "broker-12345",
			extras:     map[string]string{"verifiedEmail": "user@example.com"},
		}
		broker, auth, _ := newBrokerAuth(client)

		req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback?token=one-time-token", nil)
		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if client.gotAPIKey != "test-api-key" {
			t.Errorf("Expected api key to reach the client, got %q", client.gotAPIKey)
		}
		if client.gotToken != "one-time-token" {
			t.Errorf("Expected token to reach the client, got %q", client.gotToken)
		}

		cred := auth.Current(req)
		if cred == nil {
			t.Fatal("Expected a logged-in credential")
		}
		if cred.AuthType != oa.AuthBroker {
			t.Errorf("Expected broker auth type, got %s", cred.AuthType)
		}
		if cred.Identifier != "broker-12345" {
			t.Errorf("Expected broker identifier, got %q", cred.Identifier)
		}
		if cred.Email == nil || *cred.Email != "user@example.com" {
			t.Error("Expected verified email to be recorded")
		}
		if loc := rr.Header().Get("Location"); loc != "/" {
			t.Errorf("Expected redirect to default destination, got %s", loc)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		broker, _, _ := newBrokerAuth(&fakeBrokerClient{})

		req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback", nil)
		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rr.Code)
		}
	})

	t.Run("form token wins over query token", func(t *testing.T) {
		client := &fakeBrokerClient{identifier: "broker-1"}
		broker, _, _ := newBrokerAuth(client)

		form := url.Values{"token": {"form-token"}}
		req := postForm("/auth/broker/callback?token=query-token", form)
		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if client.gotToken != "form-token" {
			t.Errorf("Expected form token to win, got %q", client.gotToken)
		}
	})

	t.Run("exchange failure returns to entry", func(t *testing.T) {
		client := &fakeBrokerClient{err: errors.New("token expired")}
		broker, auth, _ := newBrokerAuth(client)

		req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback?token=stale", nil)
		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if rr.Code != http.StatusFound {
			t.Errorf("Expected redirect, got %d", rr.Code)
		}
		if loc := rr.Header().Get("Location"); loc != "/login" {
			t.Errorf("Expected redirect to login, got %s", loc)
		}
		if auth.Current(req) != nil {
			t.Error("Expected no login after failed exchange")
		}
		if msg := auth.PopMessage(req); msg != "Unable to verify your identity" {
			t.Errorf("Expected generic failure message, got %q", msg)
		}
	})

	t.Run("zero-value orchestrator still redirects to login", func(t *testing.T) {
		client := &fakeBrokerClient{err: errors.New("token expired")}
		broker := &oa.BrokerAuth{
			Auth:   &oa.Auth{Session: newMapSession()},
			Client: client,
		}

		req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback?token=stale", nil)
		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if loc := rr.Header().Get("Location"); loc != "/login" {
			t.Errorf("Expected default login route, got %q", loc)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		broker := &oa.BrokerAuth{Auth: oa.New("Test", newMapSession())}

		req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback?token=x", nil)
		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected status %d, got %d", http.StatusNotFound, rr.Code)
		}
	})
}

func TestBrokerDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		extras   map[string]string
		wantName string
	}{
		{
			name: "verified email first",
			extras: map[string]string{
				"verifiedEmail":     "v@example.com",
				"email":             "e@example.com",
				"displayName":       "Display",
				"preferredUsername": "prefuser",
			},
			wantName: "v@example.com",
		},
		{
			name: "unverified email next",
			extras: map[string]string{
				"email":       "e@example.com",
				"displayName": "Display",
			},
			wantName: "e@example.com",
		},
		{
			name:     "display name next",
			extras:   map[string]string{"displayName": "Display", "preferredUsername": "prefuser"},
			wantName: "Display",
		},
		{
			name:     "preferred username last",
			extras:   map[string]string{"preferredUsername": "prefuser"},
			wantName: "prefuser",
		},
		{
			name:     "no name attributes",
			extras:   map[string]string{"unrelated": "value"},
			wantName: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeBrokerClient{identifier: "broker-1", extras: tt.extras}
			broker, auth, _ := newBrokerAuth(client)

			req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback?token=x", nil)
			rr := httptest.NewRecorder()
			broker.HandleCallback(rr, req)

			cred := auth.Current(req)
			if cred == nil {
				t.Fatal("Expected a logged-in credential")
			}
			if tt.wantName == "" {
				if cred.DisplayName != nil {
					t.Errorf("Expected no display name, got %q", *cred.DisplayName)
				}
			} else if cred.DisplayName == nil || *cred.DisplayName != tt.wantName {
				t.Errorf("Expected display name %q, got %+v", tt.wantName, cred.DisplayName)
			}

			// only explicitly verified emails land on the credential
			if tt.extras["verifiedEmail"] == "" && cred.Email != nil {
				t.Errorf("Expected no email without verifiedEmail, got %q", *cred.Email)
			}
		})
	}
}

func TestBrokerDestination(t *testing.T) {
	t.Run("dest param overrides saved destination", func(t *testing.T) {
		client := &fakeBrokerClient{identifier: "broker-1"}
		broker, auth, _ := newBrokerAuth(client)

		req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback?token=x&dest=/after", nil)
		auth.SaveDestination(req, "/saved")

		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if loc := rr.Header().Get("Location"); loc != "/after" {
			t.Errorf("Expected dest param redirect, got %s", loc)
		}
	})

	t.Run("fragment marker stripped from dest", func(t *testing.T) {
		client := &fakeBrokerClient{identifier: "broker-1"}
		broker, _, _ := newBrokerAuth(client)

		req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback?token=x&dest=%23/after", nil)
		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if loc := rr.Header().Get("Location"); loc != "/after" {
			t.Errorf("Expected fragment-stripped redirect, got %s", loc)
		}
	})

	t.Run("falls back to saved destination", func(t *testing.T) {
		client := &fakeBrokerClient{identifier: "broker-1"}
		broker, auth, _ := newBrokerAuth(client)

		req := httptest.NewRequest(http.MethodGet, "/auth/broker/callback?token=x", nil)
		auth.SaveDestination(req, "/saved")

		rr := httptest.NewRecorder()
		broker.HandleCallback(rr, req)

		if loc := rr.Header().Get("Location"); loc != "/saved" {
			t.Errorf("Expected saved destination redirect, got %s", loc)
		}
	})
}
