package authgate

import (
	"context"
	"errors"
	"log"
)

// OAuthResolver finds or provisions a user/account pair from an external
// identity provider's profile data.
type OAuthResolver struct {
	store Store
}

// NewOAuthResolver creates a resolver over the given store.
func NewOAuthResolver(store Store) *OAuthResolver {
	return &OAuthResolver{store: store}
}

// GetOrCreateUser resolves a provider profile to a local user.
//
// Resolution order:
//  1. Existing account for (provider, accountID): return its user,
//     refreshing name/image fields the profile fills in.
//  2. Existing user with the profile's email: link a new account for this
//     provider to it (account linking by verified email).
//  3. Otherwise create both the user and the account.
//
// The call is idempotent per (provider, accountID): repeated logins resolve
// to the same user. Fails with ErrProfileIncomplete when the provider did
// not supply the accountID, or the email needed for linking/provisioning.
func (r *OAuthResolver) GetOrCreateUser(ctx context.Context, profile *Profile) (*User, error) {
	if profile == nil || profile.Provider == "" || profile.AccountID == "" {
		return nil, ErrProfileIncomplete
	}

	account, err := r.store.GetAccount(ctx, profile.Provider, profile.AccountID)
	if err == nil {
		user, err := r.store.GetUserByID(ctx, account.UserID)
		if err != nil {
			return nil, err
		}
		r.syncProfile(ctx, user, profile)
		return user, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	if profile.Email == "" {
		return nil, ErrProfileIncomplete
	}
	email := normalizeEmail(profile.Email)

	user, err := r.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		user, err = r.store.CreateUser(ctx, profile.Name, email, profile.Image)
		if err != nil {
			return nil, err
		}
	}

	newAccount := &Account{
		Provider:  profile.Provider,
		AccountID: profile.AccountID,
		UserID:    user.ID,
	}
	if err := r.store.CreateAccount(ctx, newAccount); err != nil {
		return nil, err
	}

	log.Printf("Linked %s account %s to user %s", profile.Provider, profile.AccountID, user.ID)
	return user, nil
}

// syncProfile fills empty user fields from the provider profile. Sync
// failures are logged, not surfaced; login succeeds regardless.
func (r *OAuthResolver) syncProfile(ctx context.Context, user *User, profile *Profile) {
	changed := false
	if user.Name == "" && profile.Name != "" {
		user.Name = profile.Name
		changed = true
	}
	if user.Image == "" && profile.Image != "" {
		user.Image = profile.Image
		changed = true
	}
	if !changed {
		return
	}
	if err := r.store.UpdateUser(ctx, user); err != nil {
		log.Printf("Warning: failed to sync profile for user %s: %v", user.ID, err)
	}
}
