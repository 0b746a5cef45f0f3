package battlenet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/metrics"
)

// RequestOptions carries the per-call gateway settings
type RequestOptions struct {
	// Locale overrides the client default; empty uses the default
	Locale string
	// Namespace is sent as the Battlenet-Namespace header when set
	Namespace string
	// Token overrides the application token, e.g. a user's bearer token
	Token string
	// Endpoint labels the request in metrics
	Endpoint string
}

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("battle.net API temporarily unavailable")

// Request performs one authenticated API call and decodes the JSON body into
// result. Non-2xx responses return *UpstreamError. There is no retry.
func (c *Client) Request(ctx context.Context, method, rawURL string, opts RequestOptions, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	token := opts.Token
	if token == "" {
		var err error
		if token, err = c.tokens.Token(ctx); err != nil {
			return err
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	locale := opts.Locale
	if locale == "" {
		locale = c.locale
	}
	if locale != "" {
		q := u.Query()
		q.Set("locale", locale)
		u.RawQuery = q.Encode()
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "other"
	}

	_, err = c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.do(ctx, method, u.String(), token, opts.Namespace, endpoint, result)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, reqURL, token, namespace, endpoint string, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", common.UserAgent())
	if namespace != "" {
		req.Header.Set("Battlenet-Namespace", namespace)
	}

	c.logger.Debug().Str("url", reqURL).Str("namespace", namespace).Msg("Battle.net API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			URL:        reqURL,
			Body:       string(body),
		}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
