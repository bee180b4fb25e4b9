package medley

// Outcome is the result of a single flow step: either a redirect back into
// the flow carrying a user-visible message, or a credential to continue
// with. Flow steps return Outcomes instead of short-circuiting so the
// redirect-or-continue branching stays explicit.
type Outcome struct {
	RedirectTo string
	Message    string
	Cred       *Credential
}

// RedirectOutcome aborts the flow, sending the user to route with a flash message.
func RedirectOutcome(route, message string) Outcome {
	return Outcome{RedirectTo: route, Message: message}
}

// ContinueOutcome carries an authenticated credential forward.
func ContinueOutcome(cred *Credential) Outcome {
	return Outcome{Cred: cred}
}

// Continues reports whether the flow produced a credential.
func (o Outcome) Continues() bool {
	return o.Cred != nil
}
