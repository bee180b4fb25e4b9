//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	oa "github.com/medleyauth/medley"
)

// EmailAccountModel is the GORM model for local email accounts
type EmailAccountModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Email          string `gorm:"uniqueIndex;size:255"`
	PasswordDigest string `gorm:"size:255"`
	Verified       bool   `gorm:"default:false"`
	VerifyKey      string `gorm:"size:64"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (EmailAccountModel) TableName() string {
	return "email_accounts"
}

func (m *EmailAccountModel) ToAccount() *oa.EmailAccount {
	return &oa.EmailAccount{
		ID:             m.ID,
		Email:          m.Email,
		PasswordDigest: m.PasswordDigest,
		Verified:       m.Verified,
		VerifyKey:      m.VerifyKey,
	}
}
