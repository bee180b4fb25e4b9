package medley

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginCallback runs after every successful login with the credential and
// any provider-specific extras (e.g. raw broker attributes). An error here
// aborts the login and propagates to the flow's failure handling.
type LoginCallback func(cred *Credential, extra map[string]string) error

// Auth is the session-backed login orchestrator. All provider flows hand
// their credential to CompleteLogin; everything the rest of the application
// needs (the current credential, the authorization gate, logout) lives here.
type Auth struct {
	// Session must be set; it carries the credential slot, the
	// ultimate-destination marker, and the flash message.
	Session SessionStore

	// OnLogin is invoked on every successful login. Optional.
	OnLogin LoginCallback

	// LoginRoute is where RequireCredential sends unauthenticated users.
	// Defaults to "/login".
	LoginRoute string

	// DefaultDest is the post-login/-logout fallback route. Defaults to "/".
	DefaultDest string

	// Optional name that can be used as a prefix for session variables
	AppName string

	// Session variable names; defaulted from AppName
	CredentialVar  string
	DestinationVar string
	MessageVar     string

	// JWT related fields for the auth token cookie minted at login
	JwtIssuer    string
	JWTSecretKey string

	// How long is an auth token cookie valid for.  Defaults to 1 day
	SessionTimeoutInSeconds int
}

func New(appName string, session SessionStore) *Auth {
	return (&Auth{AppName: appName, Session: session}).EnsureDefaults()
}

// EnsureDefaults fills in reasonable values for any unset config fields.
func (a *Auth) EnsureDefaults() *Auth {
	if a.AppName == "" {
		a.AppName = "Medley"
	}
	if a.LoginRoute == "" {
		a.LoginRoute = "/login"
	}
	if a.DefaultDest == "" {
		a.DefaultDest = "/"
	}
	if a.CredentialVar == "" {
		a.CredentialVar = a.AppName + "Credential"
	}
	if a.DestinationVar == "" {
		a.DestinationVar = a.AppName + "Destination"
	}
	if a.MessageVar == "" {
		a.MessageVar = a.AppName + "Message"
	}
	if a.SessionTimeoutInSeconds <= 0 {
		a.SessionTimeoutInSeconds = 86400
	}
	if a.JwtIssuer == "" {
		a.JwtIssuer = fmt.Sprintf("%s-Issuer", a.AppName)
	}
	if a.JWTSecretKey == "" {
		a.JWTSecretKey = strings.TrimSpace(os.Getenv("MEDLEY_JWT_SECRET_KEY"))
	}
	return a
}

// CompleteLogin writes the credential into the session slot (overwriting
// any prior login), mints the auth token cookie, and fires the OnLogin
// callback. A callback error aborts the login: the slot is cleared again
// and the error is returned to the calling flow.
func (a *Auth) CompleteLogin(w http.ResponseWriter, r *http.Request, cred *Credential, extra map[string]string) error {
	a.EnsureDefaults()
	encoded, err := cred.Encode()
	if err != nil {
		return err
	}
	a.Session.Put(r, a.CredentialVar, encoded)

	if a.OnLogin != nil {
		if err := a.OnLogin(cred, extra); err != nil {
			a.Session.Delete(r, a.CredentialVar)
			return err
		}
	}

	if a.JWTSecretKey != "" {
		if err := a.issueAuthToken(w, cred); err != nil {
			slog.Warn("error issuing auth token", "err", err)
		}
	}
	log.Println("Logged in credential: ", cred.Identifier)
	return nil
}

// Current returns the credential in the session slot, or nil when the
// session is unauthenticated or holds a value that no longer decodes.
func (a *Auth) Current(r *http.Request) *Credential {
	a.EnsureDefaults()
	encoded := a.Session.Get(r, a.CredentialVar)
	if encoded == "" {
		return nil
	}
	cred, err := DecodeCredential(encoded)
	if err != nil {
		slog.Warn("discarding undecodable session credential", "err", err)
		a.Session.Delete(r, a.CredentialVar)
		return nil
	}
	return cred
}

// RequireCredential is the authorization gate. When the session holds a
// credential it is returned; otherwise the current route is recorded as the
// ultimate destination, the user is redirected to the login route, and nil
// is returned (the caller must stop handling the request).
func (a *Auth) RequireCredential(w http.ResponseWriter, r *http.Request) *Credential {
	a.EnsureDefaults()
	if cred := a.Current(r); cred != nil {
		return cred
	}
	a.SaveDestination(r, r.URL.RequestURI())
	http.Redirect(w, r, a.LoginRoute, http.StatusFound)
	return nil
}

// SaveDestination records where to send the user once a flow completes.
func (a *Auth) SaveDestination(r *http.Request, dest string) {
	a.EnsureDefaults()
	if dest != "" {
		a.Session.Put(r, a.DestinationVar, dest)
	}
}

// RedirectToUltimateDestination reads and clears the destination marker,
// redirecting to it when present and to fallback otherwise.
func (a *Auth) RedirectToUltimateDestination(w http.ResponseWriter, r *http.Request, fallback string) {
	a.EnsureDefaults()
	dest := a.Session.Get(r, a.DestinationVar)
	if dest != "" {
		a.Session.Delete(r, a.DestinationVar)
	} else {
		dest = fallback
	}
	if dest == "" {
		dest = a.DefaultDest
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

// Finish applies a flow step's outcome: a redirect outcome becomes a flash
// message plus redirect, a continue outcome completes the login and sends
// the user to the ultimate destination (or fallback).
func (a *Auth) Finish(w http.ResponseWriter, r *http.Request, o Outcome, extra map[string]string, fallback string) {
	if !o.Continues() {
		a.PutMessage(r, o.Message)
		http.Redirect(w, r, o.RedirectTo, http.StatusFound)
		return
	}
	if err := a.CompleteLogin(w, r, o.Cred, extra); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	a.RedirectToUltimateDestination(w, r, fallback)
}

// PutMessage stores a one-shot user-visible message in the session.
func (a *Auth) PutMessage(r *http.Request, message string) {
	a.EnsureDefaults()
	if message != "" {
		a.Session.Put(r, a.MessageVar, message)
	}
}

// PopMessage reads and clears the flash message.
func (a *Auth) PopMessage(r *http.Request) string {
	a.EnsureDefaults()
	msg := a.Session.Get(r, a.MessageVar)
	if msg != "" {
		a.Session.Delete(r, a.MessageVar)
	}
	return msg
}

// HandleLogout removes the session credential, clears the auth token
// cookie, and redirects to the default destination (or an explicit "to"
// query parameter).
func (a *Auth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a.EnsureDefaults()
	log.Println("Logging out credential...")
	a.Session.Delete(r, a.CredentialVar)
	http.SetCookie(w, &http.Cookie{
		Name:    a.authTokenCookieName(),
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
	dest := r.URL.Query().Get("to")
	if dest == "" {
		dest = a.DefaultDest
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

// HandleStatus reports the current login state. JSON clients get
// {"ident": ..., "displayName": ...} or {"authenticated": false}; everyone
// else gets a minimal HTML rendering of the same.
func (a *Auth) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cred := a.Current(r)
	wantsJSON := strings.Contains(r.Header.Get("Accept"), "application/json")

	if wantsJSON {
		w.Header().Set("Content-Type", "application/json")
		if cred == nil {
			fmt.Fprint(w, `{"authenticated": false}`)
			return
		}
		fmt.Fprintf(w, `{"authenticated": true, "ident": %q, "displayName": %q}`,
			cred.Identifier, cred.Label())
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if cred == nil {
		fmt.Fprint(w, "<p>Not logged in</p>")
		return
	}
	fmt.Fprintf(w, "<p>Logged in as <b>%s</b> (%s)</p>", cred.Label(), cred.Identifier)
}

func (a *Auth) authTokenCookieName() string {
	return a.AppName + "AuthToken"
}

// issueAuthToken mints a signed JWT for the credential and sets it as a
// cookie so API middleware and gRPC services can verify the login without
// the session.
func (a *Auth) issueAuthToken(w http.ResponseWriter, cred *Credential) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       cred.Identifier,
		"iss":       a.JwtIssuer,
		"auth_type": string(cred.AuthType),
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)).Unix(),
	})
	tokenString, err := token.SignedString([]byte(a.JWTSecretKey))
	if err != nil {
		return fmt.Errorf("failed to sign auth token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:    a.authTokenCookieName(),
		Value:   tokenString,
		Path:    "/",
		Expires: time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)),
		MaxAge:  a.SessionTimeoutInSeconds,
	})
	return nil
}

// VerifyToken validates an auth token minted by issueAuthToken and returns
// the credential identifier it was issued for.
func (a *Auth) VerifyToken(tokenString string) (string, error) {
	a.EnsureDefaults()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	if a.JwtIssuer != "" {
		if iss, err := claims.GetIssuer(); err != nil || iss != a.JwtIssuer {
			return "", fmt.Errorf("invalid issuer")
		}
	}
	return sub, nil
}
