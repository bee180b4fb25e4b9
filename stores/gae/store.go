//go:build !wasm
// +build !wasm

// Package gae provides a Cloud Datastore backed EmailAccountStore.
package gae

import (
	"context"
	"log"
	"log/slog"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	oa "github.com/medleyauth/medley"
)

// KindEmailAccount is the Datastore entity kind for local accounts
const KindEmailAccount = "EmailAccount"

// accountEntity is the stored shape; the key carries the id
type accountEntity struct {
	Email          string `datastore:"email"`
	PasswordDigest string `datastore:"password_digest,noindex"`
	Verified       bool   `datastore:"verified"`
	VerifyKey      string `datastore:"verify_key,noindex"`
}

// AccountStore implements oa.EmailAccountStore using Google Cloud
// Datastore. Ids are Datastore-allocated, unique across processes.
type AccountStore struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context

	// Sender delivers verification mail; defaults to ConsoleEmailSender
	Sender oa.EmailSender
}

func NewAccountStore(ctx context.Context, client *datastore.Client, namespace string, sender oa.EmailSender) *AccountStore {
	if sender == nil {
		sender = &oa.ConsoleEmailSender{}
	}
	return &AccountStore{
		client:    client,
		namespace: namespace,
		ctx:       ctx,
		Sender:    sender,
	}
}

func (s *AccountStore) key(id int64) *datastore.Key {
	k := datastore.IDKey(KindEmailAccount, id, nil)
	k.Namespace = s.namespace
	return k
}

func (s *AccountStore) AddUnverified(email, verifyKey string) (int64, error) {
	// retry-safe: a duplicate registration returns the existing id
	if acct, ok := s.GetEmailAccount(email); ok {
		return acct.ID, nil
	}

	k := datastore.IncompleteKey(KindEmailAccount, nil)
	k.Namespace = s.namespace
	entity := &accountEntity{Email: email, VerifyKey: verifyKey}
	stored, err := s.client.Put(s.ctx, k, entity)
	if err != nil {
		return 0, err
	}
	return stored.ID, nil
}

func (s *AccountStore) SendVerifyEmail(email, verifyKey, verifyURL string) {
	if err := s.Sender.SendVerificationEmail(email, verifyURL); err != nil {
		log.Println("error sending verification email: ", err)
	}
}

func (s *AccountStore) VerifyKey(accountID int64) (string, bool) {
	entity, ok := s.byID(accountID)
	if !ok {
		return "", false
	}
	return entity.VerifyKey, true
}

func (s *AccountStore) Email(accountID int64) (string, bool) {
	entity, ok := s.byID(accountID)
	if !ok {
		return "", false
	}
	return entity.Email, true
}

func (s *AccountStore) GetEmailAccount(email string) (*oa.EmailAccount, bool) {
	query := datastore.NewQuery(KindEmailAccount).
		Namespace(s.namespace).
		FilterField("email", "=", email).
		Limit(1)

	it := s.client.Run(s.ctx, query)
	var entity accountEntity
	k, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, false
	}
	if err != nil {
		slog.Warn("account lookup failed", "err", err)
		return nil, false
	}
	return entity.toAccount(k.ID), true
}

func (s *AccountStore) VerifyAccount(accountID int64) {
	entity, ok := s.byID(accountID)
	if !ok {
		return
	}
	entity.Verified = true
	if _, err := s.client.Put(s.ctx, s.key(accountID), entity); err != nil {
		slog.Warn("error marking account verified", "id", accountID, "err", err)
	}
}

func (s *AccountStore) SetPassword(accountID int64, digest string) {
	entity, ok := s.byID(accountID)
	if !ok {
		return
	}
	entity.PasswordDigest = digest
	if _, err := s.client.Put(s.ctx, s.key(accountID), entity); err != nil {
		slog.Warn("error setting password digest", "id", accountID, "err", err)
	}
}

func (s *AccountStore) byID(accountID int64) (*accountEntity, bool) {
	var entity accountEntity
	if err := s.client.Get(s.ctx, s.key(accountID), &entity); err != nil {
		if err != datastore.ErrNoSuchEntity {
			slog.Warn("account lookup failed", "id", accountID, "err", err)
		}
		return nil, false
	}
	return &entity, true
}

func (e *accountEntity) toAccount(id int64) *oa.EmailAccount {
	return &oa.EmailAccount{
		ID:             id,
		Email:          e.Email,
		PasswordDigest: e.PasswordDigest,
		Verified:       e.Verified,
		VerifyKey:      e.VerifyKey,
	}
}
