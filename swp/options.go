package swp

import "log/slog"

// Option configures an SWP Server.
type Option func(*Server)

// WithAuth sets the authenticator for the SWP server.
// If not set, NoopAuthenticator is used (development mode).
func WithAuth(auth Authenticator) Option {
	return func(s *Server) { s.auth = auth }
}

// WithCodec sets the default codec for the SWP server.
// Clients can override via the auth frame's format field.
func WithCodec(codec Codec) Option {
	return func(s *Server) { s.defaultCodec = codec }
}

// WithLogger sets the logger for the SWP server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}
