//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	ag "github.com/pavellin/authgate"
)

// UserModel is the GORM model for users
type UserModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:255"`
	Email     string    `gorm:"size:255;uniqueIndex"`
	Image     string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *ag.User {
	return &ag.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Image:     m.Image,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func UserToModel(u *ag.User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Image:     u.Image,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// AccountModel is the GORM model for provider accounts
type AccountModel struct {
	Provider     string    `gorm:"primaryKey;size:32"`
	AccountID    string    `gorm:"primaryKey;size:255"`
	UserID       string    `gorm:"size:64;index"`
	PasswordHash string    `gorm:"size:128"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *ag.Account {
	return &ag.Account{
		Provider:     m.Provider,
		AccountID:    m.AccountID,
		UserID:       m.UserID,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func AccountToModel(a *ag.Account) *AccountModel {
	return &AccountModel{
		Provider:     a.Provider,
		AccountID:    a.AccountID,
		UserID:       a.UserID,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// SessionModel is the GORM model for sessions. Only the token digest is
// stored; the raw token never reaches the database.
type SessionModel struct {
	TokenHash string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"size:64;index"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToSession() *ag.Session {
	return &ag.Session{
		TokenHash: m.TokenHash,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func SessionToModel(s *ag.Session) *SessionModel {
	return &SessionModel{
		TokenHash: s.TokenHash,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}
