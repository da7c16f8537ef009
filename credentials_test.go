package authgate_test

import (
	"context"
	"errors"
	"testing"

	ag "github.com/pavellin/authgate"
	"github.com/pavellin/authgate/stores/fs"
)

func newCredentialFixture(t *testing.T) (*fs.Store, *ag.CredentialAuthenticator, *ag.SessionManager) {
	t.Helper()
	store := fs.NewStore(t.TempDir())
	opts := (&ag.Options{BcryptCost: 4}).EnsureDefaults()
	hasher := ag.NewPasswordHasher(opts.BcryptCost)
	sessions := ag.NewSessionManager(store, opts)
	return store, ag.NewCredentialAuthenticator(store, hasher, sessions), sessions
}

func TestSignUpAndVerifyCredentials(t *testing.T) {
	_, creds, sessions := newCredentialFixture(t)
	ctx := context.Background()

	user, err := creds.SignUp(ctx, "Alice", "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}

	token, err := creds.VerifyCredentials(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("VerifyCredentials failed: %v", err)
	}

	result, err := sessions.ValidateToken(ctx, token.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if result.Anonymous() || result.User.ID != user.ID {
		t.Error("login session should resolve the signed-up user")
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	_, creds, _ := newCredentialFixture(t)
	ctx := context.Background()

	if _, err := creds.SignUp(ctx, "Alice", "alice@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	_, err := creds.SignUp(ctx, "Imposter", "alice@example.com", "otherpass99")
	if !errors.Is(err, ag.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	// Case variation is the same email.
	_, err = creds.SignUp(ctx, "Imposter", "ALICE@Example.COM", "otherpass99")
	if !errors.Is(err, ag.ErrUserExists) {
		t.Fatalf("expected ErrUserExists for case-varied email, got %v", err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	_, creds, _ := newCredentialFixture(t)
	ctx := context.Background()

	tests := []struct {
		testName string
		name     string
		email    string
		password string
		code     string
	}{
		{"missing name", "", "a@example.com", "longenough", ag.ErrCodeMissingField},
		{"missing email", "Alice", "", "longenough", ag.ErrCodeMissingField},
		{"bad email", "Alice", "not-an-email", "longenough", ag.ErrCodeInvalidEmail},
		{"short password", "Alice", "a@example.com", "short", ag.ErrCodeWeakPassword},
	}
	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			_, err := creds.SignUp(ctx, tc.name, tc.email, tc.password)
			var authErr *ag.AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if authErr.Code != tc.code {
				t.Errorf("expected code %q, got %q", tc.code, authErr.Code)
			}
		})
	}
}

func TestVerifyCredentials_FailuresIndistinguishable(t *testing.T) {
	_, creds, _ := newCredentialFixture(t)
	ctx := context.Background()

	if _, err := creds.SignUp(ctx, "Alice", "alice@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	_, wrongPassword := creds.VerifyCredentials(ctx, "alice@example.com", "wrong-pass")
	_, unknownEmail := creds.VerifyCredentials(ctx, "nobody@example.com", "s3cret-pass")

	if !errors.Is(wrongPassword, ag.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", wrongPassword)
	}
	if !errors.Is(unknownEmail, ag.ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Error("failure messages must not reveal whether the email exists")
	}
}

func TestVerifyCredentials_CaseInsensitiveEmail(t *testing.T) {
	_, creds, _ := newCredentialFixture(t)
	ctx := context.Background()

	if _, err := creds.SignUp(ctx, "Alice", "Alice@Example.com", "s3cret-pass"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, err := creds.VerifyCredentials(ctx, "alice@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("lowercase login failed: %v", err)
	}
	if _, err := creds.VerifyCredentials(ctx, "ALICE@EXAMPLE.COM", "s3cret-pass"); err != nil {
		t.Fatalf("uppercase login failed: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	_, creds, _ := newCredentialFixture(t)
	ctx := context.Background()

	user, err := creds.SignUp(ctx, "Alice", "alice@example.com", "originalpass")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if err := creds.ChangePassword(ctx, user.ID, "wrongcurrent", "replacement1"); !errors.Is(err, ag.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}

	if err := creds.ChangePassword(ctx, user.ID, "originalpass", "replacement1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := creds.VerifyCredentials(ctx, "alice@example.com", "originalpass"); !errors.Is(err, ag.ErrInvalidCredentials) {
		t.Error("old password should no longer verify")
	}
	if _, err := creds.VerifyCredentials(ctx, "alice@example.com", "replacement1"); err != nil {
		t.Errorf("new password should verify, got %v", err)
	}
}

func TestChangePassword_WeakPassword(t *testing.T) {
	_, creds, _ := newCredentialFixture(t)
	ctx := context.Background()

	user, err := creds.SignUp(ctx, "Alice", "alice@example.com", "originalpass")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	err = creds.ChangePassword(ctx, user.ID, "originalpass", "short")
	var authErr *ag.AuthError
	if !errors.As(err, &authErr) || authErr.Code != ag.ErrCodeWeakPassword {
		t.Fatalf("expected weak password error, got %v", err)
	}
}

func TestChangePassword_FirstTimeSetForOAuthUser(t *testing.T) {
	store, creds, _ := newCredentialFixture(t)
	ctx := context.Background()

	// An OAuth-provisioned user has no credentials account.
	user, err := store.CreateUser(ctx, "Carol", "carol@example.com", "")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := creds.ChangePassword(ctx, user.ID, "", "firstpassword"); err != nil {
		t.Fatalf("first-time password set failed: %v", err)
	}
	if _, err := creds.VerifyCredentials(ctx, "carol@example.com", "firstpassword"); err != nil {
		t.Errorf("newly set password should verify, got %v", err)
	}
}
