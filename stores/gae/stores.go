//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	ag "github.com/pavellin/authgate"
)

// Kind constants for Datastore entities
const (
	KindUser    = "User"
	KindEmail   = "Email"
	KindAccount = "Account"
	KindSession = "Session"
)

// Store implements ag.Store using Google Cloud Datastore
type Store struct {
	client    *datastore.Client
	namespace string
}

// NewStore creates a new Datastore-backed Store
func NewStore(client *datastore.Client, namespace string) *Store {
	return &Store{
		client:    client,
		namespace: namespace,
	}
}

func (s *Store) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *Store) accountKeyName(provider, accountID string) string {
	return provider + ":" + accountID
}

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, name, email, image string) (*ag.User, error) {
	email = strings.ToLower(email)
	userID := uuid.NewString()
	now := time.Now()

	userKey := s.namespacedKey(KindUser, userID)
	emailKey := s.namespacedKey(KindEmail, email)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing EmailEntity
		err := tx.Get(emailKey, &existing)
		if err == nil {
			return ag.ErrUserExists
		}
		if err != datastore.ErrNoSuchEntity {
			return err
		}

		entity := &UserEntity{
			Key:       userKey,
			Name:      name,
			Email:     email,
			Image:     image,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.Put(userKey, entity); err != nil {
			return err
		}
		_, err = tx.Put(emailKey, &EmailEntity{Key: emailKey, UserID: userID})
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ag.User{
		ID:        userID,
		Name:      name,
		Email:     email,
		Image:     image,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*ag.User, error) {
	key := s.namespacedKey(KindUser, id)
	var entity UserEntity
	if err := s.client.Get(ctx, key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, ag.ErrUserNotFound
		}
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ag.User, error) {
	emailKey := s.namespacedKey(KindEmail, strings.ToLower(email))
	var index EmailEntity
	if err := s.client.Get(ctx, emailKey, &index); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, ag.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUserByID(ctx, index.UserID)
}

func (s *Store) UpdateUser(ctx context.Context, user *ag.User) error {
	key := s.namespacedKey(KindUser, user.ID)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity UserEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return ag.ErrUserNotFound
			}
			return err
		}
		entity.Name = user.Name
		entity.Email = strings.ToLower(user.Email)
		entity.Image = user.Image
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(key, &entity)
		return err
	})
	return err
}

// ============================================================================
// AccountStore
// ============================================================================

func (s *Store) CreateAccount(ctx context.Context, account *ag.Account) error {
	key := s.namespacedKey(KindAccount, s.accountKeyName(account.Provider, account.AccountID))

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing AccountEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return fmt.Errorf("account already exists: %s/%s", account.Provider, account.AccountID)
		}
		if err != datastore.ErrNoSuchEntity {
			return err
		}

		now := time.Now()
		entity := &AccountEntity{
			Key:          key,
			Provider:     account.Provider,
			AccountID:    account.AccountID,
			UserID:       account.UserID,
			PasswordHash: account.PasswordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, err = tx.Put(key, entity)
		return err
	})
	return err
}

func (s *Store) GetAccount(ctx context.Context, provider, accountID string) (*ag.Account, error) {
	key := s.namespacedKey(KindAccount, s.accountKeyName(provider, accountID))
	var entity AccountEntity
	if err := s.client.Get(ctx, key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, ag.ErrAccountNotFound
		}
		return nil, err
	}
	return entity.ToAccount(), nil
}

func (s *Store) GetAccountByUser(ctx context.Context, userID, provider string) (*ag.Account, error) {
	query := datastore.NewQuery(KindAccount).
		FilterField("user_id", "=", userID).
		FilterField("provider", "=", provider).
		Limit(1)
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	it := s.client.Run(ctx, query)
	var entity AccountEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, ag.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return entity.ToAccount(), nil
}

func (s *Store) UpdateAccountPassword(ctx context.Context, provider, accountID, passwordHash string) error {
	key := s.namespacedKey(KindAccount, s.accountKeyName(provider, accountID))

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity AccountEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return ag.ErrAccountNotFound
			}
			return err
		}
		entity.PasswordHash = passwordHash
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(key, &entity)
		return err
	})
	return err
}

// ============================================================================
// SessionStore
// ============================================================================

func (s *Store) PutSession(ctx context.Context, session *ag.Session) error {
	key := s.namespacedKey(KindSession, session.TokenHash)
	entity := &SessionEntity{
		Key:       key,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	}
	_, err := s.client.Put(ctx, key, entity)
	return err
}

func (s *Store) GetSession(ctx context.Context, tokenHash string) (*ag.Session, error) {
	key := s.namespacedKey(KindSession, tokenHash)
	var entity SessionEntity
	if err := s.client.Get(ctx, key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, ag.ErrSessionNotFound
		}
		return nil, err
	}
	entity.Key = key
	return entity.ToSession(), nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	key := s.namespacedKey(KindSession, tokenHash)
	if err := s.client.Delete(ctx, key); err != nil && !errors.Is(err, datastore.ErrNoSuchEntity) {
		return err
	}
	return nil
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	query := datastore.NewQuery(KindSession).
		FilterField("user_id", "=", userID).
		KeysOnly()
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	keys, err := s.client.GetAll(ctx, query, nil)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.DeleteMulti(ctx, keys)
}
