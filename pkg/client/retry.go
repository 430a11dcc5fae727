package client

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// RetryClient retries calls on connection errors, 429 and 5xx responses.
type RetryClient struct {
	retryClient *retryablehttp.Client
}

// Apply wraps the transport.
func (r RetryClient) Apply(ctx context.Context, c *Client) error {
	if r.retryClient.RetryMax <= 0 {
		return nil
	}

	r.retryClient.HTTPClient = &http.Client{
		Transport: c.client.Transport,
	}
	r.retryClient.Logger = log.Ctx(ctx)

	c.client.Transport = &retryablehttp.RoundTripper{Client: r.retryClient}

	return nil
}
