package fs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavellin/authgate"
)

func TestUserStore(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "Alice", "Alice@Example.com", "img.png")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected a generated user ID")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected lowercased email, got %q", user.Email)
	}

	byID, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != user.Email || byID.Name != "Alice" {
		t.Errorf("unexpected user %+v", byID)
	}

	// Lookup is case-insensitive.
	byEmail, err := store.GetUserByEmail(ctx, "ALICE@example.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, byEmail.ID)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, authgate.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, authgate.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	// Duplicate email is rejected regardless of case.
	if _, err := store.CreateUser(ctx, "Imposter", "ALICE@EXAMPLE.COM", ""); !errors.Is(err, authgate.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}

	user.Name = "Alice Smith"
	if err := store.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	updated, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if updated.Name != "Alice Smith" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}

	if err := store.UpdateUser(ctx, &authgate.User{ID: "missing"}); !errors.Is(err, authgate.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAccountStore(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "Alice", "alice@example.com", "")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	account := &authgate.Account{
		Provider:     "google",
		AccountID:    "goog-1",
		UserID:       user.ID,
		PasswordHash: "",
	}
	if err := store.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := store.CreateAccount(ctx, account); err == nil {
		t.Error("duplicate account creation should fail")
	}

	got, err := store.GetAccount(ctx, "google", "goog-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("unexpected account %+v", got)
	}

	byUser, err := store.GetAccountByUser(ctx, user.ID, "google")
	if err != nil {
		t.Fatalf("GetAccountByUser failed: %v", err)
	}
	if byUser.AccountID != "goog-1" {
		t.Errorf("unexpected account %+v", byUser)
	}

	if _, err := store.GetAccount(ctx, "github", "gh-1"); !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := store.GetAccountByUser(ctx, user.ID, "github"); !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountStore_UpdatePassword(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "Alice", "alice@example.com", "")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err = store.CreateAccount(ctx, &authgate.Account{
		Provider:     authgate.ProviderCredentials,
		AccountID:    user.ID,
		UserID:       user.ID,
		PasswordHash: "old-digest",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if err := store.UpdateAccountPassword(ctx, authgate.ProviderCredentials, user.ID, "new-digest"); err != nil {
		t.Fatalf("UpdateAccountPassword failed: %v", err)
	}

	// Both lookup paths observe the update.
	account, err := store.GetAccount(ctx, authgate.ProviderCredentials, user.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.PasswordHash != "new-digest" {
		t.Errorf("expected new digest, got %q", account.PasswordHash)
	}
	byUser, err := store.GetAccountByUser(ctx, user.ID, authgate.ProviderCredentials)
	if err != nil {
		t.Fatalf("GetAccountByUser failed: %v", err)
	}
	if byUser.PasswordHash != "new-digest" {
		t.Errorf("user index should observe the update, got %q", byUser.PasswordHash)
	}

	if err := store.UpdateAccountPassword(ctx, "github", "gh-1", "x"); !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSessionStore(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	session := &authgate.Session{
		TokenHash: "aaaa1111",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second),
		CreatedAt: time.Now().Truncate(time.Second),
	}
	if err := store.PutSession(ctx, session); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "aaaa1111")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != "user-1" || !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("unexpected session %+v", got)
	}

	// Put is an upsert.
	session.ExpiresAt = session.ExpiresAt.Add(time.Hour)
	if err := store.PutSession(ctx, session); err != nil {
		t.Fatalf("second PutSession failed: %v", err)
	}
	got, err = store.GetSession(ctx, "aaaa1111")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Error("upsert should replace the row")
	}

	if _, err := store.GetSession(ctx, "unknown"); !errors.Is(err, authgate.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	if err := store.DeleteSession(ctx, "aaaa1111"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if err := store.DeleteSession(ctx, "aaaa1111"); err != nil {
		t.Errorf("DeleteSession must be idempotent, got %v", err)
	}
	if _, err := store.GetSession(ctx, "aaaa1111"); !errors.Is(err, authgate.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionStore_DeleteUserSessions(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	for _, s := range []*authgate.Session{
		{TokenHash: "h1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
		{TokenHash: "h2", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
		{TokenHash: "h3", UserID: "user-2", ExpiresAt: time.Now().Add(time.Hour)},
	} {
		if err := store.PutSession(ctx, s); err != nil {
			t.Fatalf("PutSession failed: %v", err)
		}
	}

	if err := store.DeleteUserSessions(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteUserSessions failed: %v", err)
	}

	for _, hash := range []string{"h1", "h2"} {
		if _, err := store.GetSession(ctx, hash); !errors.Is(err, authgate.ErrSessionNotFound) {
			t.Errorf("expected %s to be deleted, got %v", hash, err)
		}
	}
	if _, err := store.GetSession(ctx, "h3"); err != nil {
		t.Errorf("other users' sessions must survive, got %v", err)
	}

	// Deleting for a user with no sessions is fine.
	if err := store.DeleteUserSessions(ctx, "user-3"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
