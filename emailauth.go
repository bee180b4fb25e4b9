package medley

import (
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"
	"strconv"
)

// EmailAuth is the local email/password flow: registration with emailed
// verification keys, verification, password login, and password set. All
// persistence goes through the EmailAccountStore contract.
type EmailAuth struct {
	Auth  *Auth
	Store EmailAccountStore

	// Hasher defaults to LegacyHasher
	Hasher PasswordHasher

	// BaseURL prefixes the verification link embedded in mail
	BaseURL string

	// VerifyRoute is the path of HandleVerify. Defaults to "/email/verify".
	VerifyRoute string

	// SetPasswordRoute receives freshly verified users. Defaults to
	// "/email/setpassword".
	SetPasswordRoute string

	// EntryRoute is where failed logins and verifications land. Defaults
	// to the orchestrator's login route.
	EntryRoute string

	// Form field names
	EmailField    string
	PasswordField string
	ConfirmField  string
}

const invalidVerifyKeyMessage = "Invalid verification key"
const invalidLoginMessage = "Invalid email or password"

// dummy digest keeps password verification on the code path even when the
// account or digest is missing, so failures are not distinguishable by
// timing
var dummyDigest = SaltAndHash("AAAAA", "this-password-never-matches")

func (e *EmailAuth) hasher() PasswordHasher {
	if e.Hasher != nil {
		return e.Hasher
	}
	return LegacyHasher{}
}

func (e *EmailAuth) entryRoute() string {
	if e.EntryRoute != "" {
		return e.EntryRoute
	}
	return e.Auth.EnsureDefaults().LoginRoute
}

func (e *EmailAuth) verifyRoute() string {
	if e.VerifyRoute != "" {
		return e.VerifyRoute
	}
	return "/email/verify"
}

func (e *EmailAuth) setPasswordRoute() string {
	if e.SetPasswordRoute != "" {
		return e.SetPasswordRoute
	}
	return "/email/setpassword"
}

func (e *EmailAuth) emailField() string {
	if e.EmailField != "" {
		return e.EmailField
	}
	return "email"
}

func (e *EmailAuth) passwordField() string {
	if e.PasswordField != "" {
		return e.PasswordField
	}
	return "password"
}

func (e *EmailAuth) confirmField() string {
	if e.ConfirmField != "" {
		return e.ConfirmField
	}
	return "confirm"
}

// HandleRegister accepts an email address and (re)sends a verification
// link. Registering an existing address reuses its account id and key, so
// re-registration is idempotent and never leaks whether the address was
// already known.
func (e *EmailAuth) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Error parsing form", ""), http.StatusBadRequest)
		return
	}
	email := r.FormValue(e.emailField())
	if email == "" {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Email required", e.emailField()), http.StatusBadRequest)
		return
	}

	var accountID int64
	var key string
	if acct, ok := e.Store.GetEmailAccount(email); ok {
		accountID = acct.ID
		key = acct.VerifyKey
	} else {
		var err error
		key, err = GenerateVerifyKey()
		if err != nil {
			http.Error(w, "Registration failed", http.StatusInternalServerError)
			return
		}
		accountID, err = e.Store.AddUnverified(email, key)
		if err != nil {
			log.Println("error creating account: ", err)
			e.Auth.PutMessage(r, "Registration failed, please try again")
			http.Redirect(w, r, e.entryRoute(), http.StatusFound)
			return
		}
	}

	verifyURL := fmt.Sprintf("%s%s?id=%d&key=%s", e.BaseURL, e.verifyRoute(), accountID, key)
	e.Store.SendVerifyEmail(email, key, verifyURL)

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"message": "Please check your email for a verification link"}`)
}

// HandleVerify accepts (id, key) from the verification link. Success marks
// the account verified, logs the user in, and forwards to set-password.
// A wrong id and a wrong key produce the identical generic outcome.
func (e *EmailAuth) HandleVerify(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		e.Auth.Finish(w, r, RedirectOutcome(e.entryRoute(), invalidVerifyKeyMessage), nil, "")
		return
	}
	key := r.URL.Query().Get("key")

	outcome := e.verifyStep(accountID, key)
	if !outcome.Continues() {
		e.Auth.Finish(w, r, outcome, nil, "")
		return
	}
	if err := e.Auth.CompleteLogin(w, r, outcome.Cred, nil); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	// Always land on set-password: the account has no digest yet. Any saved
	// destination marker stays put for HandleSetPassword to consume.
	http.Redirect(w, r, e.setPasswordRoute(), http.StatusFound)
}

func (e *EmailAuth) verifyStep(accountID int64, key string) Outcome {
	wantKey, haveKey := e.Store.VerifyKey(accountID)
	email, haveEmail := e.Store.Email(accountID)
	keyMatches := haveKey &&
		subtle.ConstantTimeCompare([]byte(key), []byte(wantKey)) == 1
	if !keyMatches || !haveEmail {
		return RedirectOutcome(e.entryRoute(), invalidVerifyKeyMessage)
	}

	e.Store.VerifyAccount(accountID)
	id := accountID
	return ContinueOutcome(&Credential{
		AuthType:   AuthEmail,
		Identifier: email,
		Email:      &email,
		LocalID:    &id,
	})
}

// HandleLogin authenticates with email and password. Every failure — no
// such account, unverified, no password set, wrong password — produces the
// same generic message.
func (e *EmailAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Error parsing form", ""), http.StatusBadRequest)
		return
	}
	email := r.FormValue(e.emailField())
	password := r.FormValue(e.passwordField())
	if email == "" || password == "" {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Email and password required", e.emailField()), http.StatusBadRequest)
		return
	}

	outcome := e.loginStep(email, password)
	e.Auth.Finish(w, r, outcome, nil, e.Auth.DefaultDest)
}

func (e *EmailAuth) loginStep(email, password string) Outcome {
	acct, found := e.Store.GetEmailAccount(email)

	digest := dummyDigest
	if found && acct.PasswordDigest != "" {
		digest = acct.PasswordDigest
	}
	passwordOK := e.hasher().Verify(password, digest)

	if !found || !acct.CanLogin() || !passwordOK {
		return RedirectOutcome(e.entryRoute(), invalidLoginMessage)
	}

	id := acct.ID
	addr := acct.Email
	return ContinueOutcome(&Credential{
		AuthType:   AuthEmail,
		Identifier: addr,
		Email:      &addr,
		LocalID:    &id,
	})
}

// HandleSetPassword stores a new password digest for the logged-in email
// account. It requires an email-authenticated session; the two submitted
// password fields must match.
func (e *EmailAuth) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	cred := e.Auth.RequireCredential(w, r)
	if cred == nil {
		return
	}
	if cred.AuthType != AuthEmail || cred.LocalID == nil {
		writeAuthError(w, NewAuthError(ErrCodeInvalidCreds, "Password can only be set for email accounts", ""), http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Error parsing form", ""), http.StatusBadRequest)
		return
	}
	password := r.FormValue(e.passwordField())
	confirm := r.FormValue(e.confirmField())
	if password == "" {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Password required", e.passwordField()), http.StatusBadRequest)
		return
	}
	if password != confirm {
		e.Auth.PutMessage(r, "Passwords do not match")
		http.Redirect(w, r, e.setPasswordRoute(), http.StatusFound)
		return
	}

	digest, err := e.hasher().Hash(password)
	if err != nil {
		http.Error(w, "Failed to set password", http.StatusInternalServerError)
		return
	}
	e.Store.SetPassword(*cred.LocalID, digest)

	// any pending flash message is stale once the password is set
	e.Auth.PopMessage(r)
	e.Auth.RedirectToUltimateDestination(w, r, e.Auth.DefaultDest)
}
