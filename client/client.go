// Package client provides a Go client for connecting to a remote autosort
// instance via the Sort Wire Protocol (SWP) over WebSocket.
//
// Usage:
//
//	c, err := client.Dial("wss://api.example.com/swp",
//	    client.WithToken("sk_..."),
//	)
//	defer c.Close()
//
//	// Trigger a sort and inspect the outcome.
//	result, err := c.TriggerSort(ctx, "base")
//
//	// Watch a running sort.
//	ch, err := c.Watch(ctx, result.SortID)
//	for evt := range ch {
//	    fmt.Printf("%s\n", evt.Type)
//	}
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/Spiderbuttons/autosort/backoff"
	"github.com/Spiderbuttons/autosort/event"
	"github.com/Spiderbuttons/autosort/swp"
)

// Client is an SWP client that communicates with a remote autosort server.
type Client struct {
	url    string
	token  string
	format string
	logger *slog.Logger

	// Reconnection.
	reconnect  bool
	maxRetries int
	strategy   backoff.Strategy

	// Connection state.
	conn      net.Conn
	codec     swp.Codec
	mu        sync.Mutex
	closed    atomic.Bool
	sessionID string

	// Request-response correlation.
	pending sync.Map // frameID -> chan *swp.Frame

	// Subscriptions.
	subs sync.Map // channel -> chan *event.Event
}

// Dial connects to an SWP server and authenticates.
func Dial(url string, opts ...Option) (*Client, error) {
	return DialContext(context.Background(), url, opts...)
}

// DialContext connects to an SWP server with a context.
func DialContext(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:        url,
		format:     "json",
		logger:     slog.Default(),
		maxRetries: 5,
		strategy:   backoff.DefaultStrategy(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("autosort/client: dial: %w", err)
	}

	// Start the read loop.
	go c.readLoop()

	return c, nil
}

// connect establishes the WebSocket connection and sends the auth frame.
// It reads the auth response directly since the readLoop hasn't started yet.
func (c *Client) connect(ctx context.Context) error {
	conn, _, _, err := ws.Dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	// Reconnects swap the connection while requests may be in flight;
	// writeFrame and readLoop read these under the same lock.
	c.mu.Lock()
	c.conn = conn
	c.codec = &swp.JSONCodec{}
	c.mu.Unlock()

	// Send auth frame. The handshake is always JSON in both directions;
	// the negotiated codec takes over afterwards.
	authFrame := &swp.Frame{
		ID:        swp.GenerateFrameID(),
		Type:      swp.FrameRequest,
		Method:    swp.MethodAuth,
		Token:     c.token,
		Timestamp: time.Now().UTC(),
	}
	authData, marshalErr := json.Marshal(swp.AuthRequest{
		Token:  c.token,
		Format: c.format,
	})
	if marshalErr != nil {
		_ = conn.Close()
		return fmt.Errorf("marshal auth request: %w", marshalErr)
	}
	authFrame.Data = authData

	if writeErr := c.writeFrame(authFrame); writeErr != nil {
		_ = conn.Close()
		return fmt.Errorf("write auth frame: %w", writeErr)
	}

	// Read the auth response directly from the WebSocket.
	// We cannot use readLoop here because it hasn't been started yet
	// (DialContext starts it after connect returns).
	type readResult struct {
		resp *swp.Frame
		err  error
	}
	resultCh := make(chan readResult, 1)

	go func() {
		data, readErr := wsutil.ReadServerText(conn)
		if readErr != nil {
			resultCh <- readResult{err: fmt.Errorf("read auth response: %w", readErr)}
			return
		}
		var frame swp.Frame
		if unmarshalErr := json.Unmarshal(data, &frame); unmarshalErr != nil {
			resultCh <- readResult{err: fmt.Errorf("unmarshal auth response: %w", unmarshalErr)}
			return
		}
		resultCh <- readResult{resp: &frame}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			_ = conn.Close()
			return result.err
		}
		resp := result.resp
		if resp.Type == swp.FrameErr {
			_ = conn.Close()
			msg := "unknown error"
			if resp.Error != nil {
				msg = resp.Error.Message
			}
			return fmt.Errorf("auth failed: %s", msg)
		}
		var authResp swp.AuthResponse
		if len(resp.Data) > 0 {
			if unmarshalErr := json.Unmarshal(resp.Data, &authResp); unmarshalErr != nil {
				c.logger.Warn("failed to unmarshal auth response", slog.String("error", unmarshalErr.Error()))
			}
		}
		c.mu.Lock()
		c.sessionID = authResp.SessionID
		if authResp.Format != "" {
			c.codec = swp.GetCodec(authResp.Format)
		}
		sessionID, codecName := c.sessionID, c.codec.Name()
		c.mu.Unlock()
		c.logger.Info("SWP client connected",
			slog.String("session_id", sessionID),
			slog.String("format", codecName),
		)
		return nil
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-time.After(10 * time.Second):
		_ = conn.Close()
		return fmt.Errorf("auth timeout")
	}
}

// readLoop reads frames from the WebSocket and dispatches them.
func (c *Client) readLoop() {
	for {
		if c.closed.Load() {
			return
		}

		c.mu.Lock()
		conn, codec := c.conn, c.codec
		c.mu.Unlock()

		data, _, err := wsutil.ReadServerData(conn)
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Warn("SWP client read error", slog.String("error", err.Error()))
			if c.reconnect {
				c.tryReconnect()
			}
			return
		}

		frame, decErr := codec.Decode(data)
		if decErr != nil {
			c.logger.Warn("SWP client: invalid frame", slog.String("error", decErr.Error()))
			continue
		}

		// Route the frame.
		switch frame.Type {
		case swp.FrameResponse, swp.FrameErr:
			// Correlate with pending request.
			if val, ok := c.pending.Load(frame.CorrelID); ok {
				ch := val.(chan *swp.Frame) //nolint:errcheck // pending map always stores chan *swp.Frame
				select {
				case ch <- frame:
				default:
				}
			}
		case swp.FrameEvent:
			// Route to every local subscription the event belongs on. The
			// frame channel carries the event's primary topic; aggregate
			// subscriptions like "sorts" match via the topic rules.
			var evt event.Event
			if json.Unmarshal(frame.Data, &evt) != nil {
				continue
			}
			c.subs.Range(func(key, val any) bool {
				channel := key.(string)       //nolint:errcheck // subs map keys are channel strings
				ch := val.(chan *event.Event) //nolint:errcheck // subs map always stores chan *event.Event
				if channel != frame.Channel && !event.MatchesTopic(channel, &evt) {
					return true
				}
				select {
				case ch <- &evt:
				default:
					// Drop if subscriber is slow.
				}
				return true
			})
		case swp.FramePong:
			// Ignore pong frames.
		}
	}
}

// tryReconnect attempts to reconnect using the configured backoff strategy.
func (c *Client) tryReconnect() {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.strategy.Delay(attempt)
		c.logger.Info("SWP client reconnecting",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		time.Sleep(delay)

		if err := c.connect(context.Background()); err != nil {
			c.logger.Warn("SWP client reconnect failed", slog.String("error", err.Error()))
			continue
		}

		c.logger.Info("SWP client reconnected")
		go c.readLoop()
		c.resubscribe()
		return
	}
	c.logger.Error("SWP client: max reconnection attempts reached")
}

// resubscribe replays the local subscription set on a fresh connection;
// server-side subscriptions do not survive a reconnect.
func (c *Client) resubscribe() {
	c.subs.Range(func(key, _ any) bool {
		channel := key.(string) //nolint:errcheck // subs map keys are channel strings
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := c.request(ctx, swp.MethodSubscribe, swp.SubscribeRequest{Channel: channel}); err != nil {
			c.logger.Warn("SWP client resubscribe failed",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
		}
		return true
	})
}

// request sends a request frame and waits for the correlated response.
func (c *Client) request(ctx context.Context, method string, data any) (*swp.Frame, error) {
	frame := &swp.Frame{
		ID:        swp.GenerateFrameID(),
		Type:      swp.FrameRequest,
		Method:    method,
		Timestamp: time.Now().UTC(),
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request data: %w", err)
		}
		frame.Data = raw
	}

	respCh := make(chan *swp.Frame, 1)
	c.pending.Store(frame.ID, respCh)
	defer c.pending.Delete(frame.ID)

	if err := c.writeFrame(frame); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		if resp.Type == swp.FrameErr {
			msg := "unknown error"
			if resp.Error != nil {
				msg = resp.Error.Message
			}
			return nil, fmt.Errorf("SWP error: %s", msg)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// writeFrame encodes and sends a frame over the WebSocket using the
// negotiated codec.
func (c *Client) writeFrame(frame *swp.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.codec.Encode(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return wsutil.WriteClientMessage(c.conn, c.codec.Op(), data)
}

// SessionID returns the session ID assigned by the server. Reconnects
// establish a new session, so the value can change over time.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Close closes the client connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}

	// Close all subscription channels.
	c.subs.Range(func(key, val any) bool {
		ch := val.(chan *event.Event) //nolint:errcheck // subs map always stores chan *event.Event
		close(ch)
		c.subs.Delete(key)
		return true
	})

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
