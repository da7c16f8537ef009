package oauth2

import (
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pavellin/authgate"
)

// Google authenticates against Google's OAuth2 endpoints
type Google struct {
	Base
}

// NewGoogle creates the Google provider. Empty arguments fall back to the
// OAUTH2_GOOGLE_CLIENT_ID, OAUTH2_GOOGLE_CLIENT_SECRET and
// OAUTH2_GOOGLE_CALLBACK_URL environment variables.
func NewGoogle(clientID, clientSecret, callbackURL string) *Google {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET"))
	}
	if callbackURL == "" {
		callbackURL = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL"))
	}

	out := &Google{
		Base: Base{
			name:        "google",
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			oauthConfig: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  callbackURL,
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
		},
	}
	out.mapProfile = mapGoogleProfile
	return out
}

func mapGoogleProfile(userInfo map[string]any) (*authgate.Profile, error) {
	accountID := stringField(userInfo, "id")
	if accountID == "" {
		return nil, authgate.ErrProfileIncomplete
	}
	return &authgate.Profile{
		Provider:  "google",
		AccountID: accountID,
		Name:      stringField(userInfo, "name"),
		Email:     stringField(userInfo, "email"),
		Image:     stringField(userInfo, "picture"),
	}, nil
}
