// Package token keeps stored Google access tokens fresh.
package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/auth/google"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/pysugar/dataroom/internal/logging"
	"github.com/pysugar/dataroom/internal/metrics"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// RefreshMargin is how long before expiry a token is treated as expired.
const RefreshMargin = 5 * time.Minute

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Manager hands out valid access tokens, refreshing at most once per account at a time.
type Manager struct {
	db        *gorm.DB
	refresher Refresher
	metrics   *metrics.Metrics
	now       func() time.Time
	locks     keyedMutex
}

// NewManager creates a token manager. m may be nil.
func NewManager(database *gorm.DB, refresher Refresher, m *metrics.Metrics) *Manager {
	return &Manager{
		db:        database,
		refresher: refresher,
		metrics:   m,
		now:       time.Now,
		locks:     keyedMutex{entries: make(map[string]*lockEntry)},
	}
}

// EnsureValidAccessToken returns acct's access token, refreshing and persisting it
// first if it expires within RefreshMargin. acct is updated in place on refresh.
func (m *Manager) EnsureValidAccessToken(ctx context.Context, acct *models.OAuthAccount) (string, error) {
	if m.fresh(acct) {
		return acct.AccessToken, nil
	}

	unlock := m.locks.lock(acct.ID)
	defer unlock()

	log := logging.FromContext(ctx).WithField("oauth_account_id", acct.ID)

	// A request holding the lock before us may already have refreshed.
	current, err := db.GetOAuthAccount(m.db, acct.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", apperr.New(apperr.CodeGoogleNotConnected, "Please connect your Google account first")
		}
		return "", apperr.Wrap(err, apperr.CodeDatabaseError, "Failed to load Google account")
	}
	if m.fresh(current) {
		*acct = *current
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		m.metrics.TokenRefresh(metrics.ResultFailure)
		return "", apperr.New(apperr.CodeOAuthRevoked, "No refresh token available. User needs to reconnect Google.")
	}

	tok, err := m.refresher.RefreshAccessToken(ctx, current.RefreshToken)
	if err != nil {
		m.metrics.TokenRefresh(metrics.ResultFailure)
		log.WithError(err).Warn("token refresh failed")
		if e, ok := apperr.As(err); ok && e.Code == apperr.CodeOAuthRevoked {
			return "", e
		}
		return "", apperr.Wrap(err, apperr.CodeOAuthRevoked, "Failed to refresh token")
	}

	expiresAt := google.Expiry(tok, m.now()).UTC()
	rotated := ""
	if tok.RefreshToken != "" && tok.RefreshToken != current.RefreshToken {
		rotated = tok.RefreshToken
	}
	saved, err := db.SaveRefreshedToken(m.db, current.ID, current.AccessToken, tok.AccessToken, rotated, expiresAt)
	if err != nil {
		m.metrics.TokenRefresh(metrics.ResultFailure)
		return "", apperr.Wrap(err, apperr.CodeDatabaseError, "Failed to store refreshed token")
	}
	if !saved {
		// Another process refreshed concurrently; its token is the one on record.
		m.metrics.TokenRefresh(metrics.ResultSkipped)
		winner, err := db.GetOAuthAccount(m.db, current.ID)
		if err != nil {
			return "", apperr.Wrap(err, apperr.CodeDatabaseError, "Failed to load Google account")
		}
		*acct = *winner
		return winner.AccessToken, nil
	}

	m.metrics.TokenRefresh(metrics.ResultSuccess)
	if rotated != "" {
		log.Info("refresh token rotated")
	}
	log.WithField("expires_at", expiresAt.Format(time.RFC3339)).Debug("access token refreshed")

	*acct = *current
	acct.AccessToken = tok.AccessToken
	acct.ExpiresAt = &expiresAt
	if rotated != "" {
		acct.RefreshToken = rotated
	}
	return tok.AccessToken, nil
}

func (m *Manager) fresh(acct *models.OAuthAccount) bool {
	return acct.AccessToken != "" && acct.ExpiresAt != nil && acct.ExpiresAt.After(m.now().Add(RefreshMargin))
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
