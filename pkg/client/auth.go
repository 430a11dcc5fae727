package client

import (
	"context"

	"golang.org/x/oauth2"
)

// AuthClient authenticates calls to a private catalog mirror.
type AuthClient struct {
	token string
}

// Apply wraps the client.
func (a AuthClient) Apply(ctx context.Context, c *Client) error {
	if a.token == "" {
		return nil
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: a.token},
	)

	timeout := c.client.Timeout

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client) // needed by oauth2
	c.client = oauth2.NewClient(ctx, ts)
	c.client.Timeout = timeout

	return nil
}
