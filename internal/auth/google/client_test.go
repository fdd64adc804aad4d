package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T) (*httptest.Server, config.GoogleConfig) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
			assert.Equal(t, "http://app/cb", r.PostForm.Get("redirect_uri"))
			_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"token_type":"Bearer"}`))
		case "refresh_token":
			switch r.PostForm.Get("refresh_token") {
			case "rt-rotate":
				_, _ = w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","expires_in":1800,"token_type":"Bearer"}`))
			case "rt-keep":
				_, _ = w.Write([]byte(`{"access_token":"at-3","token_type":"Bearer"}`))
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			}
		}
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"bad token"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sub-1", "email": "ada@example.com", "name": "Ada"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		APIBaseURL:   srv.URL,
	}
}

func TestExchangeCode(t *testing.T) {
	_, cfg := newFakeGoogle(t)
	c := NewClient(cfg)

	tok, err := c.ExchangeCode(context.Background(), "good-code", "http://app/cb")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)

	_, err = c.ExchangeCode(context.Background(), "bad-code", "http://app/cb")
	assert.True(t, apperr.HasCode(err, apperr.CodeTokenExchangeFailed))
}

func TestRefreshAccessToken(t *testing.T) {
	_, cfg := newFakeGoogle(t)
	c := NewClient(cfg)

	tok, err := c.RefreshAccessToken(context.Background(), "rt-rotate")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok.AccessToken)
	assert.Equal(t, "rt-2", tok.RefreshToken)

	tok, err = c.RefreshAccessToken(context.Background(), "rt-keep")
	require.NoError(t, err)
	assert.Equal(t, "at-3", tok.AccessToken)
	assert.Equal(t, "rt-keep", tok.RefreshToken)

	_, err = c.RefreshAccessToken(context.Background(), "revoked")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeOAuthRevoked, e.Code)
	assert.Equal(t, http.StatusUnauthorized, e.Status)
}

func TestFetchUserInfo(t *testing.T) {
	_, cfg := newFakeGoogle(t)
	c := NewClient(cfg)

	info, err := c.FetchUserInfo(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, &UserInfo{Subject: "sub-1", Email: "ada@example.com", Name: "Ada"}, info)

	_, err = c.FetchUserInfo(context.Background(), "wrong")
	assert.True(t, apperr.HasCode(err, apperr.CodeUserInfoFailed))
}

func TestExpiry_DefaultsWhenMissing(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Hour), Expiry(&oauth2.Token{}, now))

	exp := now.Add(10 * time.Minute)
	assert.Equal(t, exp, Expiry(&oauth2.Token{Expiry: exp}, now))
}

func TestClient_TimesOutAgainstHangingProvider(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(config.GoogleConfig{
		ClientID:   "client-id",
		TokenURL:   srv.URL + "/token",
		APIBaseURL: srv.URL,
	})
	c.timeout = 100 * time.Millisecond

	tests := []struct {
		name string
		call func() error
		code string
	}{
		{"exchange", func() error {
			_, err := c.ExchangeCode(context.Background(), "code", "http://app/cb")
			return err
		}, apperr.CodeTokenExchangeFailed},
		{"refresh", func() error {
			_, err := c.RefreshAccessToken(context.Background(), "rt")
			return err
		}, apperr.CodeOAuthRevoked},
		{"userinfo", func() error {
			_, err := c.FetchUserInfo(context.Background(), "at")
			return err
		}, apperr.CodeUserInfoFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			err := tt.call()

			assert.Less(t, time.Since(start), 5*time.Second)
			assert.True(t, apperr.HasCode(err, tt.code), "got %v", err)
		})
	}
}
