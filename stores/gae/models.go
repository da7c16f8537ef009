//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	ag "github.com/pavellin/authgate"
)

// UserEntity is the Datastore entity for users
type UserEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Name      string         `datastore:"name,noindex"`
	Email     string         `datastore:"email"`
	Image     string         `datastore:"image,noindex"`
	CreatedAt time.Time      `datastore:"created_at"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

func (e *UserEntity) ToUser() *ag.User {
	return &ag.User{
		ID:        e.Key.Name,
		Name:      e.Name,
		Email:     e.Email,
		Image:     e.Image,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// EmailEntity maps a lowercased email to a user id
// Key format: lowercased email
type EmailEntity struct {
	Key    *datastore.Key `datastore:"__key__"`
	UserID string         `datastore:"user_id"`
}

// AccountEntity is the Datastore entity for provider accounts
// Key format: Provider + ":" + AccountID
type AccountEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	Provider     string         `datastore:"provider"`
	AccountID    string         `datastore:"account_id"`
	UserID       string         `datastore:"user_id"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
}

func (e *AccountEntity) ToAccount() *ag.Account {
	return &ag.Account{
		Provider:     e.Provider,
		AccountID:    e.AccountID,
		UserID:       e.UserID,
		PasswordHash: e.PasswordHash,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// SessionEntity is the Datastore entity for sessions, keyed by token digest
type SessionEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	UserID    string         `datastore:"user_id"`
	ExpiresAt time.Time      `datastore:"expires_at"`
	CreatedAt time.Time      `datastore:"created_at"`
}

func (e *SessionEntity) ToSession() *ag.Session {
	return &ag.Session{
		TokenHash: e.Key.Name,
		UserID:    e.UserID,
		ExpiresAt: e.ExpiresAt,
		CreatedAt: e.CreatedAt,
	}
}
