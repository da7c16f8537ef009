// Package fs provides a JSON-file-backed implementation of authgate.Store,
// suitable for development, small deployments and the test suite. Every
// write goes through an atomic rename so a crash never leaves a torn file.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavellin/authgate"
)

// Store implements authgate.Store on a directory of JSON files. A single
// mutex serializes access; the row-level atomicity the session contract
// asks for follows from that.
type Store struct {
	mu          sync.Mutex
	storagePath string
}

// NewStore creates a file store rooted at storagePath.
func NewStore(storagePath string) *Store {
	return &Store{storagePath: storagePath}
}

func (s *Store) userPath(id string) string {
	return filepath.Join(s.storagePath, "users", id+".json")
}

func (s *Store) emailPath(email string) string {
	return filepath.Join(s.storagePath, "emails", url.QueryEscape(strings.ToLower(email))+".json")
}

func (s *Store) accountPath(provider, accountID string) string {
	return filepath.Join(s.storagePath, "accounts", provider+"_"+url.QueryEscape(accountID)+".json")
}

func (s *Store) userAccountPath(userID, provider string) string {
	return filepath.Join(s.storagePath, "user_accounts", userID+"_"+provider+".json")
}

func (s *Store) sessionPath(tokenHash string) string {
	return filepath.Join(s.storagePath, "sessions", tokenHash+".json")
}

// emailIndex maps a lowercased email to its user id
type emailIndex struct {
	UserID string `json:"user_id"`
}

// =============================================================================
// UserStore
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, name, email, image string) (*authgate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(email)
	if _, err := os.Stat(s.emailPath(email)); err == nil {
		return nil, authgate.ErrUserExists
	}

	now := time.Now()
	user := &authgate.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Image:     image,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := writeJSONFile(s.userPath(user.ID), user); err != nil {
		return nil, err
	}
	if err := writeJSONFile(s.emailPath(email), &emailIndex{UserID: user.ID}); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*authgate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getUserByID(id)
}

func (s *Store) getUserByID(id string) (*authgate.User, error) {
	var user authgate.User
	if err := readJSONFile(s.userPath(id), &user); err != nil {
		if os.IsNotExist(err) {
			return nil, authgate.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*authgate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var index emailIndex
	if err := readJSONFile(s.emailPath(email), &index); err != nil {
		if os.IsNotExist(err) {
			return nil, authgate.ErrUserNotFound
		}
		return nil, err
	}
	return s.getUserByID(index.UserID)
}

func (s *Store) UpdateUser(ctx context.Context, user *authgate.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getUserByID(user.ID); err != nil {
		return err
	}
	updated := *user
	updated.UpdatedAt = time.Now()
	return writeJSONFile(s.userPath(user.ID), &updated)
}

// =============================================================================
// AccountStore
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, account *authgate.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.accountPath(account.Provider, account.AccountID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("account already exists: %s/%s", account.Provider, account.AccountID)
	}

	now := time.Now()
	stored := *account
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := writeJSONFile(path, &stored); err != nil {
		return err
	}
	return writeJSONFile(s.userAccountPath(account.UserID, account.Provider), &stored)
}

func (s *Store) GetAccount(ctx context.Context, provider, accountID string) (*authgate.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAccount(s.accountPath(provider, accountID))
}

func (s *Store) GetAccountByUser(ctx context.Context, userID, provider string) (*authgate.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAccount(s.userAccountPath(userID, provider))
}

func (s *Store) readAccount(path string) (*authgate.Account, error) {
	var account authgate.Account
	if err := readJSONFile(path, &account); err != nil {
		if os.IsNotExist(err) {
			return nil, authgate.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (s *Store) UpdateAccountPassword(ctx context.Context, provider, accountID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.readAccount(s.accountPath(provider, accountID))
	if err != nil {
		return err
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now()

	if err := writeJSONFile(s.accountPath(provider, accountID), account); err != nil {
		return err
	}
	return writeJSONFile(s.userAccountPath(account.UserID, provider), account)
}

// =============================================================================
// SessionStore
// =============================================================================

func (s *Store) PutSession(ctx context.Context, session *authgate.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONFile(s.sessionPath(session.TokenHash), session)
}

func (s *Store) GetSession(ctx context.Context, tokenHash string) (*authgate.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var session authgate.Session
	if err := readJSONFile(s.sessionPath(tokenHash), &session); err != nil {
		if os.IsNotExist(err) {
			return nil, authgate.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.sessionPath(tokenHash)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.storagePath, "sessions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		var session authgate.Session
		if err := readJSONFile(path, &session); err != nil {
			continue
		}
		if session.UserID != userID {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// =============================================================================
// File helpers
// =============================================================================

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func writeJSONFile(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

// writeAtomicFile writes data via a temp file and rename so readers never
// observe a partial write
func writeAtomicFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
