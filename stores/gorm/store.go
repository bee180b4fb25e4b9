//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"log"
	"log/slog"

	"gorm.io/gorm"

	oa "github.com/medleyauth/medley"
)

// AutoMigrate runs database migrations for the account table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EmailAccountModel{})
}

// AccountStore implements oa.EmailAccountStore on a SQL database via GORM.
// Id assignment is the database's auto-increment, so ids stay unique across
// restarts and processes. Lookups report backend failures the same way as
// absence, after logging them.
type AccountStore struct {
	db *gorm.DB

	// Sender delivers verification mail; defaults to ConsoleEmailSender
	Sender oa.EmailSender
}

func NewAccountStore(db *gorm.DB, sender oa.EmailSender) *AccountStore {
	if sender == nil {
		sender = &oa.ConsoleEmailSender{}
	}
	return &AccountStore{db: db, Sender: sender}
}

func (s *AccountStore) AddUnverified(email, verifyKey string) (int64, error) {
	// retry-safe: a duplicate registration returns the existing id
	var existing EmailAccountModel
	err := s.db.First(&existing, "email = ?", email).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	model := &EmailAccountModel{Email: email, VerifyKey: verifyKey}
	if err := s.db.Create(model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

func (s *AccountStore) SendVerifyEmail(email, verifyKey, verifyURL string) {
	if err := s.Sender.SendVerificationEmail(email, verifyURL); err != nil {
		log.Println("error sending verification email: ", err)
	}
}

func (s *AccountStore) VerifyKey(accountID int64) (string, bool) {
	model, ok := s.byID(accountID)
	if !ok {
		return "", false
	}
	return model.VerifyKey, true
}

func (s *AccountStore) Email(accountID int64) (string, bool) {
	model, ok := s.byID(accountID)
	if !ok {
		return "", false
	}
	return model.Email, true
}

func (s *AccountStore) GetEmailAccount(email string) (*oa.EmailAccount, bool) {
	var model EmailAccountModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("account lookup failed", "err", err)
		}
		return nil, false
	}
	return model.ToAccount(), true
}

func (s *AccountStore) VerifyAccount(accountID int64) {
	err := s.db.Model(&EmailAccountModel{}).
		Where("id = ?", accountID).
		Update("verified", true).Error
	if err != nil {
		slog.Warn("error marking account verified", "id", accountID, "err", err)
	}
}

func (s *AccountStore) SetPassword(accountID int64, digest string) {
	err := s.db.Model(&EmailAccountModel{}).
		Where("id = ?", accountID).
		Update("password_digest", digest).Error
	if err != nil {
		slog.Warn("error setting password digest", "id", accountID, "err", err)
	}
}

func (s *AccountStore) byID(accountID int64) (*EmailAccountModel, bool) {
	var model EmailAccountModel
	if err := s.db.First(&model, "id = ?", accountID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("account lookup failed", "id", accountID, "err", err)
		}
		return nil, false
	}
	return &model, true
}
