package oauth2

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/medleyauth/medley"
)

type GoogleOAuth2 struct {
	*BaseOAuth2

	// IdentifierPrefix defaults to "google:"
	IdentifierPrefix string
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, completeLogin CompleteLoginFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL"))
	}

	out := GoogleOAuth2{
		BaseOAuth2:       NewBaseOAuth2(clientId, clientSecret, callbackUrl, completeLogin),
		IdentifierPrefix: "google:",
	}
	out.oauthConfig.Endpoint = google.Endpoint
	out.oauthConfig.Scopes = []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}

	out.mux.HandleFunc("/callback/", out.handleCallback)
	out.mux.HandleFunc("/callback", out.handleCallback)

	return &out
}

func (g *GoogleOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !g.checkState(w, r) {
		return
	}

	ctx := g.ExchangeContext()
	code := r.FormValue("code")
	token, err := g.oauthConfig.Exchange(ctx, code)
	if err != nil {
		slog.Info("Invalid code exchange", "err", err)
		http.Redirect(w, r, g.authFailureUrl(), http.StatusTemporaryRedirect)
		return
	}

	svc, err := goauth2.NewService(ctx, option.WithTokenSource(g.oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		slog.Info("error creating userinfo service", "err", err)
		http.Redirect(w, r, g.authFailureUrl(), http.StatusTemporaryRedirect)
		return
	}
	info, err := svc.Userinfo.Get().Do()
	if err != nil {
		slog.Info("error fetching userinfo", "err", err)
		http.Redirect(w, r, g.authFailureUrl(), http.StatusTemporaryRedirect)
		return
	}
	if info.Id == "" {
		http.Error(w, "provider profile missing id", http.StatusBadGateway)
		return
	}

	cred := &medley.Credential{
		AuthType:      medley.AuthOAuth,
		Identifier:    g.IdentifierPrefix + info.Id,
		ProviderToken: token.AccessToken,
	}
	extras := map[string]string{"id": info.Id}
	if info.Email != "" {
		email := info.Email
		cred.Email = &email
		extras["email"] = email
	}
	if info.Name != "" {
		name := info.Name
		cred.DisplayName = &name
		extras["name"] = name
	}
	g.CompleteLogin(cred, extras, w, r)
}
