// Package stores provides EmailAccountStore implementations.
package stores

import (
	"log"
	"sync"

	oa "github.com/medleyauth/medley"
)

// MemoryAccountStore is the reference store: a single slice of accounts
// behind one mutex. Every operation holds the lock for its full
// read-modify-write, so concurrent registrations, verifications and logins
// are linearized (not parallelized). Ids restart at 1 on every process
// start, so this is only suitable as a test double or for throwaway
// deployments.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts []*oa.EmailAccount

	// Sender delivers verification mail; defaults to ConsoleEmailSender
	Sender oa.EmailSender
}

func NewMemoryAccountStore(sender oa.EmailSender) *MemoryAccountStore {
	if sender == nil {
		sender = &oa.ConsoleEmailSender{}
	}
	return &MemoryAccountStore{Sender: sender}
}

// AddUnverified creates an unverified account with id = 1 + max existing
// id. Re-adding a known address returns the existing id, making the
// operation safe to retry.
func (s *MemoryAccountStore) AddUnverified(email, verifyKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for _, acct := range s.accounts {
		if acct.Email == email {
			return acct.ID, nil
		}
		if acct.ID > maxID {
			maxID = acct.ID
		}
	}
	acct := &oa.EmailAccount{
		ID:        maxID + 1,
		Email:     email,
		VerifyKey: verifyKey,
	}
	s.accounts = append(s.accounts, acct)
	return acct.ID, nil
}

func (s *MemoryAccountStore) SendVerifyEmail(email, verifyKey, verifyURL string) {
	if err := s.Sender.SendVerificationEmail(email, verifyURL); err != nil {
		log.Println("error sending verification email: ", err)
	}
}

func (s *MemoryAccountStore) VerifyKey(accountID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct := s.byID(accountID); acct != nil {
		return acct.VerifyKey, true
	}
	return "", false
}

func (s *MemoryAccountStore) Email(accountID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct := s.byID(accountID); acct != nil {
		return acct.Email, true
	}
	return "", false
}

func (s *MemoryAccountStore) GetEmailAccount(email string) (*oa.EmailAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.Email == email {
			out := *acct
			return &out, true
		}
	}
	return nil, false
}

func (s *MemoryAccountStore) VerifyAccount(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct := s.byID(accountID); acct != nil {
		acct.Verified = true
	}
}

func (s *MemoryAccountStore) SetPassword(accountID int64, digest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct := s.byID(accountID); acct != nil {
		acct.PasswordDigest = digest
	}
}

// byID must be called with the lock held
func (s *MemoryAccountStore) byID(accountID int64) *oa.EmailAccount {
	for _, acct := range s.accounts {
		if acct.ID == accountID {
			return acct
		}
	}
	return nil
}
