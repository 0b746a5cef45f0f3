// Package battlenet provides a client for the Battle.net World of Warcraft APIs
package battlenet

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/metrics"
)

const (
	DefaultAPIBaseURL     = "https://{region}.api.blizzard.com"
	DefaultLocale         = "en_US"
	DefaultTimeout        = 30 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultRateLimit      = 100 // requests per second
	DefaultMaxFailures    = 5
	DefaultOpenTimeout    = 30 * time.Second
)

// Client implements the BattlenetClient interface
type Client struct {
	apiBaseURL     string
	locale         string
	requestTimeout time.Duration
	httpClient     *http.Client
	tokens         interfaces.TokenSource
	logger         *common.Logger
	limiter        *rate.Limiter

	maxFailures uint32
	openTimeout time.Duration
	breaker     *gobreaker.CircuitBreaker[struct{}]
}

var _ interfaces.BattlenetClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithAPIBaseURL sets the API base URL. A "{region}" placeholder is
// substituted per request.
func WithAPIBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.apiBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLocale sets the default locale query parameter. Empty disables it.
func WithLocale(locale string) ClientOption {
	return func(c *Client) {
		c.locale = locale
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRequestTimeout bounds each upstream call
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.requestTimeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCircuitBreaker sets how many consecutive upstream failures open the
// breaker and how long it stays open.
func WithCircuitBreaker(maxFailures uint32, openTimeout time.Duration) ClientOption {
	return func(c *Client) {
		c.maxFailures = maxFailures
		c.openTimeout = openTimeout
	}
}

// NewClient creates a new Battle.net client drawing application tokens from tokens
func NewClient(tokens interfaces.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		apiBaseURL:     DefaultAPIBaseURL,
		locale:         DefaultLocale,
		requestTimeout: DefaultRequestTimeout,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		tokens:      tokens,
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:      common.NewSilentLogger(),
		maxFailures: DefaultMaxFailures,
		openTimeout: DefaultOpenTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.breaker = c.newBreaker("battlenet-api")
	return c
}

func (c *Client) newBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return c.maxFailures > 0 && counts.ConsecutiveFailures >= c.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: isBreakerSuccess,
	})
}

// isBreakerSuccess counts only server-side trouble against the breaker.
// A 404 for a deleted character is an answer, not an outage, and a caller
// giving up is no verdict on the upstream. Per-call timeouts still count.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	code := StatusCode(err)
	if code == 0 {
		return false
	}
	return code < http.StatusInternalServerError && code != http.StatusTooManyRequests
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// baseURL resolves the API root for a region
func (c *Client) baseURL(region string) string {
	return strings.ReplaceAll(c.apiBaseURL, "{region}", strings.ToLower(region))
}
