package medley_test

import (
	"net/http"

	oa "github.com/medleyauth/medley"
)

// mapSession is a request-agnostic SessionStore for tests: a single flat
// map shared by every request.
type mapSession struct {
	values map[string]string
}

func newMapSession() *mapSession {
	return &mapSession{values: map[string]string{}}
}

func (s *mapSession) Get(r *http.Request, key string) string {
	return s.values[key]
}

func (s *mapSession) Put(r *http.Request, key, value string) {
	s.values[key] = value
}

func (s *mapSession) Delete(r *http.Request, key string) {
	delete(s.values, key)
}

// newTestAuth returns an orchestrator with defaults applied and a JWT
// secret so login also exercises the auth token path.
func newTestAuth() (*oa.Auth, *mapSession) {
	session := newMapSession()
	auth := oa.New("Test", session)
	auth.JWTSecretKey = "test-secret-key"
	return auth, session
}
