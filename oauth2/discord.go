package oauth2

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/pavellin/authgate"
)

// discordEndpoint is Discord's OAuth2 endpoint pair. x/oauth2 ships no
// discord subpackage, so it is declared here.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/api/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// Discord authenticates against Discord's OAuth2 endpoints
type Discord struct {
	Base
}

// NewDiscord creates the Discord provider. Empty arguments fall back to the
// OAUTH2_DISCORD_CLIENT_ID, OAUTH2_DISCORD_CLIENT_SECRET and
// OAUTH2_DISCORD_CALLBACK_URL environment variables.
func NewDiscord(clientID, clientSecret, callbackURL string) *Discord {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("OAUTH2_DISCORD_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_DISCORD_CLIENT_SECRET"))
	}
	if callbackURL == "" {
		callbackURL = strings.TrimSpace(os.Getenv("OAUTH2_DISCORD_CALLBACK_URL"))
	}

	out := &Discord{
		Base: Base{
			name:        "discord",
			UserInfoURL: "https://discord.com/api/users/@me",
			oauthConfig: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  callbackURL,
				Scopes:       []string{"identify", "email"},
				Endpoint:     discordEndpoint,
			},
		},
	}
	out.mapProfile = mapDiscordProfile
	return out
}

func mapDiscordProfile(userInfo map[string]any) (*authgate.Profile, error) {
	accountID := stringField(userInfo, "id")
	if accountID == "" {
		return nil, authgate.ErrProfileIncomplete
	}

	name := stringField(userInfo, "global_name")
	if name == "" {
		name = stringField(userInfo, "username")
	}

	image := ""
	if avatar := stringField(userInfo, "avatar"); avatar != "" {
		image = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", accountID, avatar)
	}

	return &authgate.Profile{
		Provider:  "discord",
		AccountID: accountID,
		Name:      name,
		Email:     stringField(userInfo, "email"),
		Image:     image,
	}, nil
}
