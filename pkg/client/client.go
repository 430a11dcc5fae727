// Package client builds the HTTP client used to call the plugin catalog.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Option configures the HTTP client.
// Options are applied in order, each one wrapping the transport built so far.
type Option interface {
	Apply(context.Context, *Client) error
}

// Client holds the HTTP client built from the options.
type Client struct {
	client *http.Client
}

// New creates a client.
func New(ctx context.Context, options ...Option) (*Client, error) {
	c := &Client{
		client: &http.Client{Transport: http.DefaultTransport},
	}

	for _, opt := range options {
		err := opt.Apply(ctx, c)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// HTTPClient returns the HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// WithTimeout sets the timeout of each call.
func WithTimeout(timeout time.Duration) Option {
	return timeoutClient{timeout: timeout}
}

// WithUserAgent sets the User-Agent header of each request.
func WithUserAgent(userAgent string) Option {
	return userAgentClient{userAgent: userAgent}
}

// WithToken authenticates requests with a bearer token. An empty token is a no-op.
func WithToken(token string) Option {
	return AuthClient{token: token}
}

// WithMetrics counts the requests. The transport is traced in both cases.
func WithMetrics(enable bool) Option {
	return MetricsClient{enabled: enable}
}

// WithRetry retries failed calls. A retryMax of 0 disables retries.
func WithRetry(retryMax int, retryWaitMin time.Duration) Option {
	r := RetryClient{
		retryClient: retryablehttp.NewClient(),
	}

	r.retryClient.RetryMax = retryMax
	r.retryClient.RetryWaitMin = retryWaitMin

	return r
}

type timeoutClient struct {
	timeout time.Duration
}

func (t timeoutClient) Apply(_ context.Context, c *Client) error {
	c.client.Timeout = t.timeout
	return nil
}

type userAgentClient struct {
	userAgent string
}

func (u userAgentClient) Apply(_ context.Context, c *Client) error {
	if u.userAgent == "" {
		return nil
	}

	c.client.Transport = &userAgentTripper{userAgent: u.userAgent, next: c.client.Transport}
	return nil
}

type userAgentTripper struct {
	userAgent string
	next      http.RoundTripper
}

func (rt *userAgentTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", rt.userAgent)

	return rt.next.RoundTrip(req)
}
