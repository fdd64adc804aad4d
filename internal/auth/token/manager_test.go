package token

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/db/dbtest"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type fakeRefresher struct {
	calls   atomic.Int32
	err     error
	refresh string
	delay   time.Duration
}

func (f *fakeRefresher) RefreshAccessToken(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	tok := &oauth2.Token{AccessToken: fmt.Sprintf("fresh-%d", n)}
	if f.refresh != "" {
		tok.RefreshToken = f.refresh
	} else {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func seedAccount(t *testing.T, conn *gorm.DB, refreshToken string, expiresAt time.Time) *models.OAuthAccount {
	t.Helper()
	user := &models.User{Email: "ada@example.com"}
	require.NoError(t, conn.Create(user).Error)
	acct := &models.OAuthAccount{
		UserID:            user.ID,
		Provider:          "google",
		ProviderAccountID: "sub-1",
		AccessToken:       "stale",
		RefreshToken:      refreshToken,
		ExpiresAt:         &expiresAt,
	}
	require.NoError(t, conn.Create(acct).Error)
	return acct
}

func TestEnsureValidAccessToken_FreshTokenUntouched(t *testing.T) {
	conn := dbtest.Open(t)
	acct := seedAccount(t, conn, "rt", time.Now().Add(10*time.Minute))
	ref := &fakeRefresher{}

	got, err := NewManager(conn, ref, nil).EnsureValidAccessToken(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, "stale", got)
	assert.Zero(t, ref.calls.Load())
}

func TestEnsureValidAccessToken_RefreshesInsideMargin(t *testing.T) {
	conn := dbtest.Open(t)
	acct := seedAccount(t, conn, "rt", time.Now().Add(4*time.Minute))
	ref := &fakeRefresher{refresh: "rt-rotated"}
	mgr := NewManager(conn, ref, nil)

	got, err := mgr.EnsureValidAccessToken(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, "fresh-1", got)
	assert.EqualValues(t, 1, ref.calls.Load())

	stored, err := db.GetOAuthAccount(conn, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-1", stored.AccessToken)
	assert.Equal(t, "rt-rotated", stored.RefreshToken)
	require.NotNil(t, stored.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *stored.ExpiresAt, time.Minute)
	assert.Equal(t, "rt-rotated", acct.RefreshToken)
}

func TestEnsureValidAccessToken_NoRefreshToken(t *testing.T) {
	conn := dbtest.Open(t)
	acct := seedAccount(t, conn, "", time.Now().Add(-time.Minute))
	ref := &fakeRefresher{}

	_, err := NewManager(conn, ref, nil).EnsureValidAccessToken(context.Background(), acct)
	assert.True(t, apperr.HasCode(err, apperr.CodeOAuthRevoked))
	assert.Zero(t, ref.calls.Load())
}

func TestEnsureValidAccessToken_RefreshFailureIsRevoked(t *testing.T) {
	conn := dbtest.Open(t)
	acct := seedAccount(t, conn, "rt", time.Now().Add(-time.Minute))
	ref := &fakeRefresher{err: context.DeadlineExceeded}

	_, err := NewManager(conn, ref, nil).EnsureValidAccessToken(context.Background(), acct)
	assert.True(t, apperr.HasCode(err, apperr.CodeOAuthRevoked))

	stored, err := db.GetOAuthAccount(conn, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "stale", stored.AccessToken)
}

func TestEnsureValidAccessToken_ConcurrentCallersRefreshOnce(t *testing.T) {
	conn := dbtest.Open(t)
	seeded := seedAccount(t, conn, "rt", time.Now().Add(-time.Minute))
	ref := &fakeRefresher{delay: 20 * time.Millisecond}
	mgr := NewManager(conn, ref, nil)

	var wg sync.WaitGroup
	tokens := make([]string, 6)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct := *seeded
			tok, err := mgr.EnsureValidAccessToken(context.Background(), &acct)
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, ref.calls.Load())
	for _, tok := range tokens {
		assert.Equal(t, "fresh-1", tok)
	}
}

func TestEnsureValidAccessToken_LostCompareAndSwapReturnsWinner(t *testing.T) {
	conn := dbtest.Open(t)
	acct := seedAccount(t, conn, "rt", time.Now().Add(-time.Minute))

	// Simulate another process refreshing between our read and our write.
	racer := refresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
		ok, err := db.SaveRefreshedToken(conn, acct.ID, "stale", "other-process", "", time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.True(t, ok)
		return &oauth2.Token{AccessToken: "ours", RefreshToken: rt}, nil
	})

	got, err := NewManager(conn, racer, nil).EnsureValidAccessToken(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, "other-process", got)

	stored, err := db.GetOAuthAccount(conn, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "other-process", stored.AccessToken)
}

type refresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f refresherFunc) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

func TestKeyedMutex_ForgetsReleasedKeys(t *testing.T) {
	k := keyedMutex{entries: make(map[string]*lockEntry)}
	unlock := k.lock("a")
	assert.Len(t, k.entries, 1)
	unlock()
	assert.Empty(t, k.entries)
}
