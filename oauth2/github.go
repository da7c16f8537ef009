package oauth2

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/pavellin/authgate"
)

// Github authenticates against GitHub's OAuth2 endpoints
type Github struct {
	Base
}

// NewGithub creates the GitHub provider. Empty arguments fall back to the
// OAUTH2_GITHUB_CLIENT_ID, OAUTH2_GITHUB_CLIENT_SECRET and
// OAUTH2_GITHUB_CALLBACK_URL environment variables.
func NewGithub(clientID, clientSecret, callbackURL string) *Github {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_SECRET"))
	}
	if callbackURL == "" {
		callbackURL = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CALLBACK_URL"))
	}

	out := &Github{
		Base: Base{
			name:        "github",
			UserInfoURL: "https://api.github.com/user",
			oauthConfig: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  callbackURL,
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
		},
	}
	out.mapProfile = mapGithubProfile
	return out
}

func mapGithubProfile(userInfo map[string]any) (*authgate.Profile, error) {
	// GitHub reports the stable account id as a number
	id, ok := userInfo["id"].(float64)
	if !ok {
		return nil, authgate.ErrProfileIncomplete
	}

	name := stringField(userInfo, "name")
	if name == "" {
		name = stringField(userInfo, "login")
	}

	return &authgate.Profile{
		Provider:  "github",
		AccountID: fmt.Sprintf("%.0f", id),
		Name:      name,
		Email:     stringField(userInfo, "email"),
		Image:     stringField(userInfo, "avatar_url"),
	}, nil
}
