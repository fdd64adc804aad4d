package google

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/pysugar/dataroom/internal/config"
)

// StateCookie carries the login state between the consent redirect and the callback.
const StateCookie = "dataroom_oauth_state"

const (
	stateTTL        = 10 * time.Minute
	stateCookiePath = "/auth/google"
)

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// setStateCookie binds state to the browser that started the login. SameSite=Lax
// keeps the cookie on Google's top-level redirect back to the callback.
func setStateCookie(w http.ResponseWriter, r *http.Request, cfg config.GoogleConfig, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   int(stateTTL / time.Second),
		HttpOnly: true,
		Secure:   strings.HasPrefix(RedirectURL(cfg, r), "https://"),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     stateCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// validState reports whether the callback's state parameter matches the cookie
// set when this browser started the login.
func validState(r *http.Request) bool {
	want := r.URL.Query().Get("state")
	cookie, err := r.Cookie(StateCookie)
	if err != nil || want == "" || cookie.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(want)) == 1
}
