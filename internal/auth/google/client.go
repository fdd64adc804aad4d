package google

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/config"
	"github.com/pysugar/dataroom/internal/util"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// RequestTimeout bounds token and userinfo calls.
const RequestTimeout = 30 * time.Second

// DefaultTokenLifetime is assumed when the token endpoint omits expires_in.
const DefaultTokenLifetime = time.Hour

// UserInfo is the subset of the Google profile we keep.
type UserInfo struct {
	Subject string
	Email   string
	Name    string
}

// Client talks to Google's OAuth token and userinfo endpoints.
type Client struct {
	cfg     config.GoogleConfig
	timeout time.Duration
}

// NewClient returns a Client for the configured OAuth client.
func NewClient(cfg config.GoogleConfig) *Client {
	return &Client{cfg: cfg, timeout: RequestTimeout}
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURL string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tok, err := GetOAuthConfig(c.cfg, redirectURL).Exchange(ctx, code)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeTokenExchangeFailed,
			"Failed to exchange code for tokens: "+providerDetail(err))
	}
	return tok, nil
}

// RefreshAccessToken obtains a new access token. The returned token carries the
// refresh token to store from now on, which may be a rotated one.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	src := GetOAuthConfig(c.cfg, "").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeOAuthRevoked,
			"Failed to refresh access token. User may need to reconnect Google.")
	}
	return tok, nil
}

// FetchUserInfo returns the profile of the token's owner.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	svc, err := oauth2api.NewService(ctx, APIOptions(ctx, c.cfg, accessToken, "")...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserInfoFailed, "Failed to get user info")
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserInfoFailed, "Failed to get user info: "+providerDetail(err))
	}
	if info.Id == "" || info.Email == "" {
		return nil, apperr.New(apperr.CodeUserInfoFailed, "Failed to get user info: profile has no id or email")
	}
	return &UserInfo{Subject: info.Id, Email: info.Email, Name: info.Name}, nil
}

// APIOptions builds client options for a Google API service acting with
// accessToken. servicePath (e.g. "drive/v3/") is appended to a configured base URL.
func APIOptions(ctx context.Context, cfg config.GoogleConfig, accessToken, servicePath string) []option.ClientOption {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, src))}
	if base := cfg.APIBaseURL; base != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(base, "/")+"/"+servicePath))
	}
	return opts
}

// Expiry returns when tok expires, assuming DefaultTokenLifetime if the provider did not say.
func Expiry(tok *oauth2.Token, now time.Time) time.Time {
	if tok.Expiry.IsZero() {
		return now.Add(DefaultTokenLifetime)
	}
	return tok.Expiry
}

// providerDetail extracts a bounded description of a failed provider call.
func providerDetail(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && len(re.Body) > 0 {
		return util.TruncateMessage(string(re.Body))
	}
	return util.TruncateMessage(err.Error())
}
