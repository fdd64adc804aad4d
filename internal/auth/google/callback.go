package google

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/auth/session"
	"github.com/pysugar/dataroom/internal/config"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/logging"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// Authenticator is the part of Client the callback needs.
type Authenticator interface {
	ExchangeCode(ctx context.Context, code, redirectURL string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
}

// HandleCallback completes the login: it checks the state against the cookie set by
// HandleStart, exchanges the code, records the user and identity, and sends the
// browser to the frontend with a session token or an error code.
func HandleCallback(database *gorm.DB, auth Authenticator, issuer *session.Issuer, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())
		q := r.URL.Query()
		stateOK := validState(r)
		clearStateCookie(w)

		if providerErr := q.Get("error"); providerErr != "" {
			log.WithField("provider_error", providerErr).Warn("google login declined")
			redirectToFrontend(w, r, cfg.FrontendOrigin, "error", providerErr)
			return
		}
		code := q.Get("code")
		if code == "" {
			redirectToFrontend(w, r, cfg.FrontendOrigin, "error", "no_code")
			return
		}
		if !stateOK {
			log.Warn("google login state mismatch")
			redirectToFrontend(w, r, cfg.FrontendOrigin, "error", "invalid_state")
			return
		}

		tok, err := auth.ExchangeCode(r.Context(), code, RedirectURL(cfg.Google, r))
		if err != nil {
			failLogin(w, r, cfg.FrontendOrigin, err)
			return
		}
		info, err := auth.FetchUserInfo(r.Context(), tok.AccessToken)
		if err != nil {
			failLogin(w, r, cfg.FrontendOrigin, err)
			return
		}

		user, created, err := db.UpsertLogin(database, db.LoginIdentity{
			Email:             info.Email,
			Name:              info.Name,
			Provider:          Provider,
			ProviderAccountID: info.Subject,
			AccessToken:       tok.AccessToken,
			RefreshToken:      tok.RefreshToken,
			Scope:             ScopeString(),
			ExpiresAt:         Expiry(tok, time.Now()).UTC(),
		})
		if err != nil {
			failLogin(w, r, cfg.FrontendOrigin, err)
			return
		}

		jwt, err := issuer.Issue(user.ID)
		if err != nil {
			failLogin(w, r, cfg.FrontendOrigin, err)
			return
		}

		log.WithField("user_id", user.ID).WithField("new_user", created).Info("google login succeeded")
		redirectToFrontend(w, r, cfg.FrontendOrigin, "token", jwt)
	}
}

func failLogin(w http.ResponseWriter, r *http.Request, frontend string, err error) {
	log := logging.FromContext(r.Context()).WithError(err)
	if e, ok := apperr.As(err); ok {
		log.WithField("code", e.Code).Warn("google login failed")
		redirectToFrontend(w, r, frontend, "error", e.Code)
		return
	}
	log.Error("oauth callback error")
	redirectToFrontend(w, r, frontend, "error", "server_error")
}

func redirectToFrontend(w http.ResponseWriter, r *http.Request, frontend, key, value string) {
	target := frontend + "/auth/callback?" + url.Values{key: {value}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}
