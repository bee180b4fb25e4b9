package medley

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
)

// SessionStore holds per-browser state. The orchestrator uses exactly three
// keys: the credential slot, the ultimate-destination marker, and the flash
// message. Transport encoding (cookie signing, encryption) is the store's
// concern, not ours.
type SessionStore interface {
	Get(r *http.Request, key string) string
	Put(r *http.Request, key, value string)
	Delete(r *http.Request, key string)
}

// SCSSessionStore adapts an scs.SessionManager to the SessionStore
// interface. The manager's LoadAndSave middleware must wrap any handler
// that touches the session.
type SCSSessionStore struct {
	Manager *scs.SessionManager
}

func NewSCSSessionStore(manager *scs.SessionManager) *SCSSessionStore {
	return &SCSSessionStore{Manager: manager}
}

func (s *SCSSessionStore) Get(r *http.Request, key string) string {
	return s.Manager.GetString(r.Context(), key)
}

func (s *SCSSessionStore) Put(r *http.Request, key, value string) {
	s.Manager.Put(r.Context(), key, value)
}

func (s *SCSSessionStore) Delete(r *http.Request, key string) {
	s.Manager.Remove(r.Context(), key)
}
