package resilience

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the provider's breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name is the provider name used by the breaker and the registry.
	Name string

	// Timeout bounds a single HTTP attempt. Default: 10 seconds.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts on 5xx and transport
	// errors. Default: 3.
	MaxRetries uint64

	// InitialInterval and MaxInterval shape the exponential backoff between
	// attempts. Defaults: 100ms and 5s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// DisableRetries makes every call a single attempt. The WAQI and
	// BigDataCloud clients set it.
	DisableRetries bool

	// Breaker overrides DefaultBreakerConfig.
	Breaker *BreakerConfig

	// Registry, when set, receives the client on creation and the outcome
	// of every call.
	Registry *Registry
}

// DefaultClientConfig returns a retrying configuration with the default
// breaker.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         &breaker,
	}
}

// Client is an HTTP client for one upstream provider.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
	trips      atomic.Int32
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 && !cfg.DisableRetries {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}

	breaker := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breaker = *cfg.Breaker
		breaker.Name = cfg.Name
	}
	next := breaker.OnStateChange
	breaker.OnStateChange = func(name string, from, to gobreaker.State) {
		if to == gobreaker.StateOpen {
			client.trips.Add(1)
		}
		if next != nil {
			next(name, from, to)
		}
	}
	client.breaker = newBreaker(breaker)

	if cfg.Registry != nil {
		cfg.Registry.Register(client)
	}

	return client
}

// Name returns the provider name this client was created for.
func (c *Client) Name() string {
	return c.config.Name
}

// Do sends req through the breaker. 5xx answers and transport errors are
// retried with exponential backoff unless retries are disabled; when every
// attempt ends in a 5xx the last response is returned without an error so
// the caller can decode the provider's error body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext is Do with an explicit context.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if !c.config.DisableRetries {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = c.config.InitialInterval
		exp.MaxInterval = c.config.MaxInterval
		exp.MaxElapsedTime = 0
		policy = backoff.WithMaxRetries(exp, c.config.MaxRetries)
	}

	var last *http.Response
	attempt := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if resp != nil {
			if last != nil && last != resp {
				last.Body.Close()
			}
			last = resp
		}
		return err
	}

	err := backoff.Retry(attempt, backoff.WithContext(policy, ctx))
	c.record(last, err)

	if err != nil && last == nil {
		return nil, err
	}
	return last, nil
}

func (c *Client) record(resp *http.Response, err error) {
	if c.config.Registry == nil {
		return
	}
	if err == nil && resp != nil && resp.StatusCode >= http.StatusInternalServerError {
		err = &ServerError{StatusCode: resp.StatusCode}
	}
	c.config.Registry.Record(c.config.Name, err)
}

// ServerError is a 5xx answer from the provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker counters for the current window.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Trips returns how often the breaker has opened since the client was created.
func (c *Client) Trips() int {
	return int(c.trips.Load())
}
