package battlenet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/metrics"
	"github.com/bobmcallan/armory/internal/models"
)

const (
	DefaultOAuthURL     = "https://oauth.battle.net/token"
	DefaultTokenTimeout = 10 * time.Second
)

// TokenCache holds one client-credentials access token and refreshes it on
// demand. Concurrent callers that find the token missing or expired share a
// single refresh; a failed refresh is reported to all of them and the next
// call starts a new one.
type TokenCache struct {
	oauthURL    string
	credentials interfaces.CredentialProvider
	httpClient  *http.Client
	timeout     time.Duration
	logger      *common.Logger
	now         func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

var _ interfaces.TokenSource = (*TokenCache)(nil)

// TokenOption configures the token cache
type TokenOption func(*TokenCache)

// WithOAuthURL sets the token endpoint
func WithOAuthURL(u string) TokenOption {
	return func(tc *TokenCache) {
		tc.oauthURL = u
	}
}

// WithTokenHTTPClient sets the HTTP client used for refreshes
func WithTokenHTTPClient(c *http.Client) TokenOption {
	return func(tc *TokenCache) {
		tc.httpClient = c
	}
}

// WithTokenTimeout bounds each refresh
func WithTokenTimeout(d time.Duration) TokenOption {
	return func(tc *TokenCache) {
		tc.timeout = d
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger *common.Logger) TokenOption {
	return func(tc *TokenCache) {
		tc.logger = logger
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) TokenOption {
	return func(tc *TokenCache) {
		tc.now = now
	}
}

// NewTokenCache creates a token cache backed by the given credential provider
func NewTokenCache(credentials interfaces.CredentialProvider, opts ...TokenOption) *TokenCache {
	tc := &TokenCache{
		oauthURL:    DefaultOAuthURL,
		credentials: credentials,
		httpClient:  &http.Client{Timeout: DefaultTokenTimeout},
		timeout:     DefaultTokenTimeout,
		logger:      common.NewSilentLogger(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(tc)
	}

	return tc
}

// Token returns a token valid at the time of the call.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := tc.cached(); ok {
		return tok, nil
	}

	ch := tc.group.DoChan("token", func() (interface{}, error) {
		if tok, ok := tc.cached(); ok {
			return tok, nil
		}
		// The refresh outlives the caller that triggered it; other waiters
		// still need the result.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tc.timeout)
		defer cancel()
		return tc.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next call refreshes.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	tc.token = ""
	tc.expiresAt = time.Time{}
	tc.mu.Unlock()
}

// ExpiresAt returns the expiry of the cached token, zero if none.
func (tc *TokenCache) ExpiresAt() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.expiresAt
}

func (tc *TokenCache) cached() (string, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.token != "" && tc.now().Before(tc.expiresAt) {
		return tc.token, true
	}
	return "", false
}

func (tc *TokenCache) refresh(ctx context.Context) (string, error) {
	creds, err := tc.credentials.ClientCredentials(ctx)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", &AuthError{Message: "load client credentials", Err: err}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Message: "build token request", Err: err}
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", common.UserAgent())

	tc.logger.Debug().Str("url", tc.oauthURL).Msg("Refreshing Battle.net access token")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", &AuthError{Message: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", &AuthError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body)))}
	}

	var token models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", &AuthError{StatusCode: resp.StatusCode, Message: "decode token response", Err: err}
	}
	if token.AccessToken == "" {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", &AuthError{StatusCode: resp.StatusCode, Message: "token response without access_token"}
	}

	expiresAt := tc.now().Add(time.Duration(token.ExpiresIn) * time.Second)

	tc.mu.Lock()
	tc.token = token.AccessToken
	tc.expiresAt = expiresAt
	tc.mu.Unlock()

	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	tc.logger.Info().Time("expires_at", expiresAt).Msg("Battle.net access token refreshed")

	return token.AccessToken, nil
}
