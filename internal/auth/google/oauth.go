package google

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pysugar/dataroom/internal/config"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

// Provider is the OAuthAccount.Provider value for Google identities.
const Provider = "google"

// CallbackPath is where Google sends the user back after consent.
const CallbackPath = "/auth/google/callback"

// Scopes requested at consent: sign-in plus read-only Drive access.
var Scopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/drive.readonly",
}

// ScopeString is Scopes in the space-separated form stored on OAuthAccount.
func ScopeString() string {
	return strings.Join(Scopes, " ")
}

// GetOAuthConfig returns the OAuth2 config for the configured Google client.
func GetOAuthConfig(cfg config.GoogleConfig, redirectURL string) *oauth2.Config {
	endpoint := googleOAuth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}
}

// RedirectURL returns the configured redirect URI, or one built from the request host.
func RedirectURL(cfg config.GoogleConfig, r *http.Request) string {
	if cfg.RedirectURI != "" {
		return cfg.RedirectURI
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, CallbackPath)
}
