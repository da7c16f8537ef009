//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ag "github.com/pavellin/authgate"
)

// AutoMigrate runs database migrations for all authgate tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&AccountModel{},
		&SessionModel{},
	)
}

// Store implements ag.Store using GORM
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// =============================================================================
// UserStore
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, name, email, image string) (*ag.User, error) {
	email = strings.ToLower(email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ag.ErrUserExists
	}

	model := &UserModel{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Image: image,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*ag.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ag.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ag.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", strings.ToLower(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ag.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *ag.User) error {
	result := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"name":  user.Name,
			"email": strings.ToLower(user.Email),
			"image": user.Image,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ag.ErrUserNotFound
	}
	return nil
}

// =============================================================================
// AccountStore
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, account *ag.Account) error {
	model := AccountToModel(account)
	return s.db.WithContext(ctx).Create(model).Error
}

func (s *Store) GetAccount(ctx context.Context, provider, accountID string) (*ag.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).
		First(&model, "provider = ? AND account_id = ?", provider, accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ag.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *Store) GetAccountByUser(ctx context.Context, userID, provider string) (*ag.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).
		First(&model, "user_id = ? AND provider = ?", userID, provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ag.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *Store) UpdateAccountPassword(ctx context.Context, provider, accountID, passwordHash string) error {
	result := s.db.WithContext(ctx).Model(&AccountModel{}).
		Where("provider = ? AND account_id = ?", provider, accountID).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ag.ErrAccountNotFound
	}
	return nil
}

// =============================================================================
// SessionStore
// =============================================================================

func (s *Store) PutSession(ctx context.Context, session *ag.Session) error {
	model := SessionToModel(session)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_hash"}},
		UpdateAll: true,
	}).Create(model).Error
}

func (s *Store) GetSession(ctx context.Context, tokenHash string) (*ag.Session, error) {
	var model SessionModel
	if err := s.db.WithContext(ctx).First(&model, "token_hash = ?", tokenHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ag.ErrSessionNotFound
		}
		return nil, err
	}
	return model.ToSession(), nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	return s.db.WithContext(ctx).Delete(&SessionModel{}, "token_hash = ?", tokenHash).Error
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Delete(&SessionModel{}, "user_id = ?", userID).Error
}
