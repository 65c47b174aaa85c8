package swp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/Spiderbuttons/autosort/event"
)

// Server is the SWP server. It upgrades HTTP requests to WebSocket
// connections, authenticates them, and runs the frame loop. Live events
// from the broker are forwarded to subscribed connections.
//
// Server implements http.Handler; mount it wherever the protocol should
// live:
//
//	http.Handle("/swp", swp.NewServer(broker, handler))
type Server struct {
	broker       *event.Broker
	handler      *Handler
	auth         Authenticator
	defaultCodec Codec
	conns        *ConnectionManager
	logger       *slog.Logger
}

// NewServer creates a new SWP server.
func NewServer(broker *event.Broker, handler *Handler, opts ...Option) *Server {
	s := &Server{
		broker:       broker,
		handler:      handler,
		defaultCodec: &JSONCodec{},
		conns:        NewConnectionManager(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.auth == nil {
		s.auth = &NoopAuthenticator{}
	}
	return s
}

// Broker returns the underlying event broker.
func (s *Server) Broker() *event.Broker { return s.broker }

// Connections returns the connection manager.
func (s *Server) Connections() *ConnectionManager { return s.conns }

// ServeHTTP upgrades the request to a WebSocket and serves the SWP
// session on a new goroutine.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("swp: websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	go s.serveConn(conn)
}

// sendRaw writes a frame as JSON text, for the pre-negotiation phase
// where no Connection exists yet.
func sendRaw(conn net.Conn, frame *Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return wsutil.WriteServerText(conn, data)
}

// serveConn authenticates the connection and runs the frame loop until
// the peer disconnects.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	connID := "conn-" + GenerateFrameID()
	ctx := context.Background()

	// Wait for the auth frame. Auth frames are always JSON (before codec
	// negotiation).
	authData, _, readErr := wsutil.ReadClientData(conn)
	if readErr != nil {
		return
	}

	var authFrame Frame
	if err := json.Unmarshal(authData, &authFrame); err != nil {
		//nolint:errcheck // best-effort error response before disconnect
		sendRaw(conn, NewErrorFrame("", ErrCodeBadRequest, "invalid auth frame"))
		return
	}

	if authFrame.Method != MethodAuth {
		//nolint:errcheck // best-effort error response before disconnect
		sendRaw(conn, NewErrorFrame(authFrame.ID, ErrCodeBadRequest, "first frame must be auth"))
		return
	}

	var authReq AuthRequest
	if len(authFrame.Data) > 0 {
		if err := json.Unmarshal(authFrame.Data, &authReq); err != nil {
			//nolint:errcheck // best-effort error response before disconnect
			sendRaw(conn, NewErrorFrame(authFrame.ID, ErrCodeBadRequest, "invalid auth data"))
			return
		}
	}

	token := authReq.Token
	if token == "" {
		token = authFrame.Token
	}
	identity, authErr := s.auth.Authenticate(ctx, token)
	if authErr != nil {
		//nolint:errcheck // best-effort error response before disconnect
		sendRaw(conn, NewErrorFrame(authFrame.ID, ErrCodeUnauthorized, "authentication failed"))
		s.logger.Warn("swp: auth failed", slog.String("conn_id", connID))
		return
	}

	// Negotiate codec.
	codec := s.defaultCodec
	if authReq.Format != "" {
		codec = GetCodec(authReq.Format)
	}

	sub := s.broker.Subscribe(connID)
	swpConn := NewConnection(connID, identity, codec, conn, sub)
	s.conns.Add(swpConn)
	defer func() {
		s.broker.RemoveSubscriber(connID)
		s.conns.Remove(connID)
		s.logger.Info("swp: disconnected", slog.String("conn_id", connID))
	}()

	// The auth response is still JSON so the client can read it before
	// switching codecs.
	resp, respErr := NewResponseFrame(authFrame.ID, AuthResponse{
		Format:    codec.Name(),
		SessionID: connID,
	})
	if respErr != nil {
		return
	}
	if err := sendRaw(conn, resp); err != nil {
		return
	}

	s.logger.Info("swp: authenticated",
		slog.String("conn_id", connID),
		slog.String("subject", identity.Subject),
		slog.String("codec", codec.Name()),
	)

	// Forward broker events to the WebSocket.
	go s.forwardEvents(swpConn)

	// Frame processing loop.
	for {
		data, _, err := wsutil.ReadClientData(conn)
		if err != nil {
			return // Connection closed.
		}

		swpConn.Touch()

		frame, decErr := codec.Decode(data)
		if decErr != nil {
			errFrame := NewErrorFrame("", ErrCodeBadRequest, "invalid frame: "+decErr.Error())
			if writeErr := swpConn.Send(errFrame); writeErr != nil {
				return
			}
			continue
		}

		// Handle ping/pong.
		if frame.Type == FramePing {
			pong := &Frame{
				ID:        GenerateFrameID(),
				Type:      FramePong,
				CorrelID:  frame.ID,
				Timestamp: frame.Timestamp,
			}
			if writeErr := swpConn.Send(pong); writeErr != nil {
				return
			}
			continue
		}

		// Check authorization for the method.
		if frame.Method != "" {
			reqScope := RequiredScope(frame.Method)
			if reqScope != "" && !identity.HasScope(reqScope) {
				errFrame := NewErrorFrame(frame.ID, ErrCodeForbidden, "insufficient permissions")
				if writeErr := swpConn.Send(errFrame); writeErr != nil {
					return
				}
				continue
			}
		}

		// Handle credit replenishment.
		if frame.Credits > 0 {
			swpConn.AddCredits(int64(frame.Credits))
			continue
		}

		respFrame := s.handler.Handle(ctx, frame, swpConn)
		if respFrame == nil {
			continue
		}

		// Subscribe/unsubscribe take effect after the handler validated
		// the request. The broker subscription is the single record of
		// what this session is on.
		if frame.Method == MethodSubscribe && respFrame.Type == FrameResponse {
			var subReq SubscribeRequest
			if json.Unmarshal(frame.Data, &subReq) == nil {
				s.broker.SubscribeTo(connID, subReq.Channel)
				if subReq.Credits > 0 {
					swpConn.AddCredits(int64(subReq.Credits))
				}
			}
		} else if frame.Method == MethodUnsubscribe && respFrame.Type == FrameResponse {
			var unsubReq UnsubscribeRequest
			if json.Unmarshal(frame.Data, &unsubReq) == nil {
				s.broker.Unsubscribe(connID, unsubReq.Channel)
			}
		}

		if writeErr := swpConn.Send(respFrame); writeErr != nil {
			return
		}
	}
}

// forwardEvents reads from the session's broker subscription and writes
// event frames to the WebSocket.
func (s *Server) forwardEvents(conn *Connection) {
	for evt := range conn.Events() {
		channel := evt.Topic
		if channel == "" {
			channel = event.TopicFirehose
		}
		evtFrame, err := NewEventFrame(channel, evt)
		if err != nil {
			continue
		}
		if writeErr := conn.Send(evtFrame); writeErr != nil {
			return // Connection gone.
		}
	}
}
