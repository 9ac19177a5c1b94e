package client

import (
	"log/slog"
	"net/http"
)

// Option configures a Client.
type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithHTTPClient sets the underlying transport client.
// No per-request timeout is imposed beyond what this client carries.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	})
}

// WithCredentials injects the credential capability used for the Authorization header.
func WithCredentials(p CredentialProvider) Option {
	return optionFunc(func(c *Client) {
		c.creds = p
	})
}

// WithAPIKey sends a legacy x-api-key header on every API request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *Client) {
		c.apiKey = key
	})
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Client) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *Client) {
		c.userAgent = ua
	})
}
