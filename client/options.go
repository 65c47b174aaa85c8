package client

import (
	"log/slog"

	"github.com/Spiderbuttons/autosort/backoff"
)

// Option configures a Client.
type Option func(*Client)

// WithToken sets the authentication token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithFormat sets the wire format for frame encoding.
// Supported values: "json" (default), "msgpack".
func WithFormat(format string) Option {
	return func(c *Client) { c.format = format }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithReconnect enables automatic reconnection. Delays between attempts
// come from the given backoff strategy; pass nil to keep the default.
func WithReconnect(maxRetries int, strategy backoff.Strategy) Option {
	return func(c *Client) {
		c.reconnect = true
		c.maxRetries = maxRetries
		if strategy != nil {
			c.strategy = strategy
		}
	}
}
