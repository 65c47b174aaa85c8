package swp

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/Spiderbuttons/autosort/event"
	"github.com/Spiderbuttons/autosort/report"
	"github.com/Spiderbuttons/autosort/store/memory"
)

func newTestServer(t *testing.T, trigger *stubTrigger, opts ...Option) (*Server, *httptest.Server, *event.Broker) {
	t.Helper()

	broker := event.NewBroker(testLogger())
	store := memory.New()
	handler := NewHandler(trigger, report.NewService(store), store, broker, testLogger())
	opts = append(opts, WithLogger(testLogger()))
	srv := NewServer(broker, handler, opts...)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts, broker
}

func dialWS(t *testing.T, httpURL string) net.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(httpURL, "http")
	conn, _, _, err := ws.Dial(context.Background(), wsURL)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	//nolint:errcheck // deadline on a fresh test conn cannot fail
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func sendFrame(t *testing.T, conn net.Conn, frame *Frame) {
	t.Helper()

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := wsutil.WriteClientText(conn, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func recvFrame(t *testing.T, conn net.Conn) *Frame {
	t.Helper()

	data, err := wsutil.ReadServerText(conn)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return &frame
}

// authenticate performs the auth handshake and returns the session ID.
func authenticate(t *testing.T, conn net.Conn, token string) string {
	t.Helper()

	sendFrame(t, conn, &Frame{
		ID:        "auth-1",
		Type:      FrameRequest,
		Method:    MethodAuth,
		Data:      mustJSON(AuthRequest{Token: token, Format: "json"}),
		Timestamp: time.Now().UTC(),
	})

	resp := recvFrame(t, conn)
	if resp.Type != FrameResponse {
		t.Fatalf("auth response type = %q (error: %+v)", resp.Type, resp.Error)
	}
	var authResp AuthResponse
	if err := json.Unmarshal(resp.Data, &authResp); err != nil {
		t.Fatalf("unmarshal auth response: %v", err)
	}
	return authResp.SessionID
}

func TestServer_AuthAndTrigger(t *testing.T) {
	r := testReport("base")
	_, ts, _ := newTestServer(t, &stubTrigger{report: r})

	conn := dialWS(t, ts.URL)
	sessionID := authenticate(t, conn, "")
	if sessionID == "" {
		t.Fatal("session ID should be assigned")
	}

	sendFrame(t, conn, &Frame{
		ID:        "req-1",
		Type:      FrameRequest,
		Method:    MethodSortTrigger,
		Data:      mustJSON(SortTriggerRequest{Site: "base"}),
		Timestamp: time.Now().UTC(),
	})

	resp := recvFrame(t, conn)
	if resp.Type != FrameResponse {
		t.Fatalf("trigger response type = %q (error: %+v)", resp.Type, resp.Error)
	}
	if resp.CorrelID != "req-1" {
		t.Errorf("CorrelID = %q, want %q", resp.CorrelID, "req-1")
	}

	var result SortTriggerResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Site != "base" {
		t.Errorf("Site = %q, want %q", result.Site, "base")
	}
}

func TestServer_AuthRejectsBadToken(t *testing.T) {
	auth := NewAPIKeyAuthenticator(
		APIKeyEntry{Token: "sk_good", Identity: Identity{Subject: "ops", Scopes: []string{"*"}}},
	)
	_, ts, _ := newTestServer(t, &stubTrigger{}, WithAuth(auth))

	conn := dialWS(t, ts.URL)
	sendFrame(t, conn, &Frame{
		ID:     "auth-bad",
		Type:   FrameRequest,
		Method: MethodAuth,
		Data:   mustJSON(AuthRequest{Token: "sk_wrong"}),
	})

	resp := recvFrame(t, conn)
	if resp.Type != FrameErr {
		t.Fatalf("expected error frame, got %q", resp.Type)
	}
	if resp.Error.Code != ErrCodeUnauthorized {
		t.Errorf("Error.Code = %d, want %d", resp.Error.Code, ErrCodeUnauthorized)
	}
}

func TestServer_FirstFrameMustBeAuth(t *testing.T) {
	_, ts, _ := newTestServer(t, &stubTrigger{})

	conn := dialWS(t, ts.URL)
	sendFrame(t, conn, &Frame{
		ID:     "req-1",
		Type:   FrameRequest,
		Method: MethodSortTrigger,
		Data:   mustJSON(SortTriggerRequest{Site: "base"}),
	})

	resp := recvFrame(t, conn)
	if resp.Type != FrameErr || resp.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad request, got %+v", resp)
	}
}

func TestServer_ScopeEnforcement(t *testing.T) {
	auth := NewAPIKeyAuthenticator(
		APIKeyEntry{Token: "sk_ro", Identity: Identity{Subject: "viewer", Scopes: []string{ScopeReportRead}}},
	)
	_, ts, _ := newTestServer(t, &stubTrigger{report: testReport("base")}, WithAuth(auth))

	conn := dialWS(t, ts.URL)
	authenticate(t, conn, "sk_ro")

	sendFrame(t, conn, &Frame{
		ID:     "req-1",
		Type:   FrameRequest,
		Method: MethodSortTrigger,
		Data:   mustJSON(SortTriggerRequest{Site: "base"}),
	})

	resp := recvFrame(t, conn)
	if resp.Type != FrameErr || resp.Error.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %+v", resp)
	}
}

func TestServer_PingPong(t *testing.T) {
	_, ts, _ := newTestServer(t, &stubTrigger{})

	conn := dialWS(t, ts.URL)
	authenticate(t, conn, "")

	sendFrame(t, conn, &Frame{ID: "ping-1", Type: FramePing, Timestamp: time.Now().UTC()})

	resp := recvFrame(t, conn)
	if resp.Type != FramePong {
		t.Fatalf("Type = %q, want %q", resp.Type, FramePong)
	}
	if resp.CorrelID != "ping-1" {
		t.Errorf("CorrelID = %q, want %q", resp.CorrelID, "ping-1")
	}
}

func TestServer_EventForwarding(t *testing.T) {
	_, ts, broker := newTestServer(t, &stubTrigger{})

	conn := dialWS(t, ts.URL)
	authenticate(t, conn, "")

	sendFrame(t, conn, &Frame{
		ID:     "sub-1",
		Type:   FrameRequest,
		Method: MethodSubscribe,
		Data:   mustJSON(SubscribeRequest{Channel: event.TopicSorts}),
	})
	resp := recvFrame(t, conn)
	if resp.Type != FrameResponse {
		t.Fatalf("subscribe failed: %+v", resp.Error)
	}

	// Publish a lifecycle event through the broker; it should arrive as
	// an event frame.
	r := testReport("base")
	if err := broker.OnSortStarted(context.Background(), r.SortID, "base"); err != nil {
		t.Fatalf("OnSortStarted: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		frame := recvFrame(t, conn)
		if frame.Type != FrameEvent {
			continue
		}
		var evt event.Event
		if err := json.Unmarshal(frame.Data, &evt); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if evt.Type != event.EventSortStarted {
			t.Errorf("event type = %q, want %q", evt.Type, event.EventSortStarted)
		}
		return
	}
	t.Fatal("timed out waiting for event frame")
}

func TestServer_ConnectionTracking(t *testing.T) {
	srv, ts, _ := newTestServer(t, &stubTrigger{})

	conn := dialWS(t, ts.URL)
	authenticate(t, conn, "")

	// The connection is registered after auth.
	waitFor(t, func() bool { return srv.Connections().Count() == 1 })

	conn.Close()
	waitFor(t, func() bool { return srv.Connections().Count() == 0 })
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
