package battlenet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/armory/internal/models"
)

type staticCredentials struct {
	creds models.ClientCredentials
	err   error
}

func (s staticCredentials) ClientCredentials(ctx context.Context) (*models.ClientCredentials, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := s.creds
	return &c, nil
}

var testCreds = staticCredentials{creds: models.ClientCredentials{ClientID: "client", ClientSecret: "secret"}}

// tokenServer issues sequential tokens, optionally delayed or failing.
type tokenServer struct {
	calls   atomic.Int32
	delay   time.Duration
	fail    atomic.Bool
	expires int64
	release chan struct{}
}

func (ts *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := ts.calls.Add(1)
	if ts.release != nil {
		<-ts.release
	}
	if ts.delay > 0 {
		time.Sleep(ts.delay)
	}
	if ts.fail.Load() {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"bearer","expires_in":%d}`, n, ts.expires)
}

func newTokenCache(t *testing.T, ts *tokenServer, opts ...TokenOption) *TokenCache {
	t.Helper()
	srv := httptest.NewServer(ts)
	t.Cleanup(srv.Close)
	return NewTokenCache(testCreds, append([]TokenOption{WithOAuthURL(srv.URL)}, opts...)...)
}

func TestTokenCache_ConcurrentCallersShareOneRefresh(t *testing.T) {
	ts := &tokenServer{delay: 50 * time.Millisecond, expires: 3600}
	tc := newTokenCache(t, ts)

	const callers = 20
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = tc.Token(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ts.calls.Load(), "exactly one token request")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "token-1", tokens[i])
	}
}

func TestTokenCache_ReusesUntilExpiry(t *testing.T) {
	ts := &tokenServer{expires: 60}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	tc := newTokenCache(t, ts, WithClock(clock))
	ctx := context.Background()

	first, err := tc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, now.Add(60*time.Second), tc.ExpiresAt())

	mu.Lock()
	now = now.Add(59 * time.Second)
	mu.Unlock()

	second, err := tc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), ts.calls.Load())

	// exactly at expires_at the token is no longer usable
	mu.Lock()
	now = now.Add(time.Second)
	mu.Unlock()

	third, err := tc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", third)
	assert.Equal(t, int32(2), ts.calls.Load())
}

func TestTokenCache_FailureReachesEveryWaiterThenRetries(t *testing.T) {
	ts := &tokenServer{expires: 3600, release: make(chan struct{})}
	ts.fail.Store(true)
	tc := newTokenCache(t, ts)

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = tc.Token(context.Background())
		}(i)
	}

	// let every caller join the in-flight refresh before it fails
	time.Sleep(100 * time.Millisecond)
	close(ts.release)
	wg.Wait()

	assert.Equal(t, int32(1), ts.calls.Load())
	for _, err := range errs {
		var authErr *AuthError
		require.True(t, errors.As(err, &authErr), "got %v", err)
		assert.Equal(t, http.StatusInternalServerError, authErr.StatusCode)
	}

	ts.fail.Store(false)
	tok, err := tc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
}

func TestTokenCache_SendsClientCredentialsGrant(t *testing.T) {
	var gotUser, gotPass, gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		fmt.Fprint(w, `{"access_token":"abc","expires_in":100}`)
	}))
	defer srv.Close()

	tc := NewTokenCache(testCreds, WithOAuthURL(srv.URL))
	tok, err := tc.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "abc", tok)
	assert.Equal(t, "client", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "grant_type=client_credentials", gotBody)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
}

func TestTokenCache_CredentialErrorIsAuthError(t *testing.T) {
	tc := NewTokenCache(staticCredentials{err: errors.New("secret missing")}, WithOAuthURL("http://127.0.0.1:1"))
	_, err := tc.Token(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, err.Error(), "secret missing")
}

func TestTokenCache_MalformedBodyIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	tc := NewTokenCache(testCreds, WithOAuthURL(srv.URL))
	_, err := tc.Token(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestTokenCache_InvalidateForcesRefresh(t *testing.T) {
	ts := &tokenServer{expires: 3600}
	tc := newTokenCache(t, ts)
	ctx := context.Background()

	_, err := tc.Token(ctx)
	require.NoError(t, err)
	tc.Invalidate()
	tok, err := tc.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "token-2", tok)
	assert.Equal(t, int32(2), ts.calls.Load())
}

func TestTokenCache_CancelledCallerDoesNotAbortSharedRefresh(t *testing.T) {
	ts := &tokenServer{delay: 100 * time.Millisecond, expires: 3600}
	tc := newTokenCache(t, ts)

	cancelled, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := tc.Token(cancelled)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	tok, err := tc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)
	assert.Equal(t, int32(1), ts.calls.Load())
}
