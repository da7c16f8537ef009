// Package oauth2 implements authgate.Provider for common OAuth identity
// providers (Google, GitHub, Discord). Each provider wraps an
// golang.org/x/oauth2 config plus a user-info endpoint and normalizes the
// provider's profile payload into an authgate.Profile.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/pavellin/authgate"
)

// profileMapper turns a provider's raw user-info payload into a Profile
type profileMapper func(userInfo map[string]any) (*authgate.Profile, error)

// Base carries the pieces shared by every OAuth provider. Concrete
// providers embed it and supply the endpoint, scopes and profile mapping.
type Base struct {
	// UserInfoURL is the endpoint queried with a Bearer token after the
	// code exchange. Overridable for testing.
	UserInfoURL string

	// HTTPClient is used for user-info requests. Defaults to
	// http.DefaultClient. Overridable for testing.
	HTTPClient *http.Client

	name        string
	oauthConfig oauth2.Config
	mapProfile  profileMapper
}

// Name returns the provider key used in the Options registry
func (b *Base) Name() string {
	return b.name
}

// AuthCodeURL returns the provider's consent page URL for the given state
func (b *Base) AuthCodeURL(state string) string {
	return b.oauthConfig.AuthCodeURL(state)
}

// Exchange trades an authorization code for the provider's user profile:
// code -> access token -> user-info fetch -> normalized Profile.
func (b *Base) Exchange(ctx context.Context, code string) (*authgate.Profile, error) {
	token, err := b.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	userInfo, err := b.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	return b.mapProfile(userInfo)
}

func (b *Base) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := b.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from %s: %w", b.name, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request to %s returned %d", b.name, response.StatusCode)
	}

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return userInfo, nil
}

func (b *Base) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// stringField reads a string field from a user-info payload, tolerating
// absent or non-string values
func stringField(userInfo map[string]any, key string) string {
	value, _ := userInfo[key].(string)
	return value
}
