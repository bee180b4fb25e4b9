package oauth2

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/medleyauth/medley"
)

type FacebookOAuth2 struct {
	*BaseOAuth2

	// ProfileURL is where the minimal profile is fetched from. Defaults to
	// the Graph API; overridable for testing.
	ProfileURL string

	// IdentifierPrefix is prepended to the provider id to form the
	// credential identifier. Defaults to "facebook:".
	IdentifierPrefix string
}

func NewFacebookOAuth2(clientId string, clientSecret string, callbackUrl string, completeLogin CompleteLoginFunc) *FacebookOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CALLBACK_URL"))
	}

	out := FacebookOAuth2{
		BaseOAuth2:       NewBaseOAuth2(clientId, clientSecret, callbackUrl, completeLogin),
		ProfileURL:       "https://graph.facebook.com/me?fields=id,name,email",
		IdentifierPrefix: "facebook:",
	}
	out.oauthConfig.Endpoint = facebook.Endpoint
	out.oauthConfig.Scopes = []string{"public_profile", "email"}

	out.mux.HandleFunc("/callback/", out.handleCallback)
	out.mux.HandleFunc("/callback", out.handleCallback)

	return &out
}

func (f *FacebookOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !f.checkState(w, r) {
		return
	}

	code := r.FormValue("code")
	token, err := f.oauthConfig.Exchange(f.ExchangeContext(), code)
	if err != nil {
		slog.Info("Invalid code exchange", "err", err)
		http.Redirect(w, r, f.authFailureUrl(), http.StatusTemporaryRedirect)
		return
	}

	profile, err := f.fetchProfile(token)
	if err != nil {
		slog.Info("redirecting due to error ", "err", err)
		http.Redirect(w, r, f.authFailureUrl(), http.StatusTemporaryRedirect)
		return
	}

	// A profile without an id means the app is misconfigured or the
	// provider changed its response shape. Not a user-recoverable state.
	id, _ := profile["id"].(string)
	if id == "" {
		http.Error(w, "provider profile missing id", http.StatusBadGateway)
		return
	}

	cred := &medley.Credential{
		AuthType:      medley.AuthOAuth,
		Identifier:    f.IdentifierPrefix + id,
		Email:         optStr(profile, "email"),
		DisplayName:   optStr(profile, "name"),
		ProviderToken: token.AccessToken,
	}
	f.CompleteLogin(cred, flatten(profile), w, r)
}

func (f *FacebookOAuth2) fetchProfile(token *oauth2.Token) (map[string]any, error) {
	log.Println("Getting user data from facebook....")
	req, err := http.NewRequest("GET", f.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %s", err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := f.getHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from facebook: %s", err.Error())
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %s", err.Error())
	}

	var profile map[string]any
	if err := json.Unmarshal(contents, &profile); err != nil {
		return nil, fmt.Errorf("failed parsing profile: %s", err.Error())
	}
	return profile, nil
}

// flatten converts a decoded profile into the string extras passed to the
// login callback.
func flatten(profile map[string]any) map[string]string {
	out := make(map[string]string, len(profile))
	for k, v := range profile {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
