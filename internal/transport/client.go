package transport

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/agentstation/fiscal/pkg/constants"
	"github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "client-request-id"

// errTransientStatus marks a response the breaker counts as a failure.
var errTransientStatus = stderrors.New("transient status")

// Client provides HTTP client functionality with authentication, rate limiting and a
// circuit breaker.
type Client struct {
	http    *http.Client
	auth    Authenticator
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	system  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit limits requests per second with the given burst. A non-positive limit
// disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithBreaker configures the circuit breaker: it opens after threshold consecutive
// failures and probes again after timeout.
func WithBreaker(threshold uint32, timeout time.Duration) Option {
	return func(c *Client) {
		c.breaker = newBreaker(c.system, threshold, timeout)
	}
}

// New creates a new transport client for a named remote system.
func New(system string, auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		limiter: rate.NewLimiter(rate.Limit(constants.DefaultRateLimit), constants.DefaultRateBurst),
		system:  system,
	}
	c.breaker = newBreaker(system, constants.BreakerFailureThreshold, constants.BreakerOpenTimeout)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(name string, threshold uint32, timeout time.Duration) *gobreaker.CircuitBreaker {
	if threshold == 0 {
		threshold = constants.BreakerFailureThreshold
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// System returns the remote system name used in errors.
func (c *Client) System() string {
	return c.system
}

// Do performs an HTTP request with authentication applied. Responses with any status
// are returned to the caller; network failures and an open breaker are returned as
// transient APIErrors.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapAPI(c.system, 0, err)
	}

	if err := c.auth.Apply(req); err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("Content-Type") == "" &&
		(req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch) {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (any, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if errors.IsTransientStatus(r.StatusCode) {
			return nil, errTransientStatus
		}
		return nil, nil
	})

	switch {
	case err == nil:
		return resp, nil
	case stderrors.Is(err, errTransientStatus):
		return resp, nil
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, &errors.APIError{
			System:   c.system,
			Message:  "circuit breaker open",
			Endpoint: req.URL.Path,
			Err:      err,
		}
	default:
		return nil, &errors.APIError{
			System:   c.system,
			Message:  "request failed",
			Endpoint: req.URL.Path,
			Err:      err,
		}
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+url, err)
	}
	return c.Do(ctx, req)
}
