package google

import (
	"net/http"

	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/config"
	"golang.org/x/oauth2"
)

// HandleStart redirects the browser to Google's consent page. Offline access
// with forced consent makes Google return a refresh token on every login.
// A random state is sent along and pinned to the browser in a cookie.
func HandleStart(cfg config.GoogleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.ClientID == "" {
			apperr.WriteCode(w, http.StatusInternalServerError, apperr.CodeConfigError,
				"GOOGLE_CLIENT_ID not configured. Check your environment.")
			return
		}

		state, err := newState()
		if err != nil {
			apperr.WriteCode(w, http.StatusInternalServerError, apperr.CodeInternal, "Failed to start login")
			return
		}
		setStateCookie(w, r, cfg, state)

		conf := GetOAuthConfig(cfg, RedirectURL(cfg, r))
		url := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, url, http.StatusFound)
	}
}
