package swp

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws/wsutil"

	"github.com/Spiderbuttons/autosort/event"
)

// Connection is one authenticated SWP session: the WebSocket, the
// negotiated codec, and the broker subscription its events flow out on.
// Send serializes writes internally; the frame loop and the event
// forwarder both write to the same socket.
type Connection struct {
	id       string
	identity *Identity
	codec    Codec

	writeMu sync.Mutex
	conn    net.Conn

	// sub is the broker-side subscription. The subscribed topic set
	// lives there; Subscriptions delegates rather than keeping a
	// second copy in step.
	sub *event.Subscriber

	connectedAt time.Time
	lastSeen    atomic.Value // time.Time
}

// NewConnection binds an authenticated socket to its negotiated codec
// and broker subscription.
func NewConnection(id string, identity *Identity, codec Codec, conn net.Conn, sub *event.Subscriber) *Connection {
	c := &Connection{
		id:          id,
		identity:    identity,
		codec:       codec,
		conn:        conn,
		sub:         sub,
		connectedAt: time.Now().UTC(),
	}
	c.lastSeen.Store(time.Now().UTC())
	return c
}

// ID returns the connection identifier, which doubles as the broker
// subscriber ID and the client-visible session ID.
func (c *Connection) ID() string { return c.id }

// Identity returns the authenticated identity.
func (c *Connection) Identity() *Identity { return c.identity }

// Codec returns the negotiated wire format.
func (c *Connection) Codec() Codec { return c.codec }

// ConnectedAt returns when the session was established.
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

// LastSeen returns when the last frame arrived from the peer.
func (c *Connection) LastSeen() time.Time {
	t, _ := c.lastSeen.Load().(time.Time)
	return t
}

// Touch records peer activity.
func (c *Connection) Touch() {
	c.lastSeen.Store(time.Now().UTC())
}

// Send encodes a frame with the negotiated codec and writes it under
// the connection's write lock.
func (c *Connection) Send(frame *Frame) error {
	data, err := c.codec.Encode(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerMessage(c.conn, c.codec.Op(), data)
}

// Subscriptions returns the topics this session's broker subscription
// is on.
func (c *Connection) Subscriptions() []string {
	if c.sub == nil {
		return nil
	}
	return c.sub.Topics()
}

// Events returns the channel the broker delivers this session's events
// on, or nil for a connection without a subscription.
func (c *Connection) Events() <-chan *event.Event {
	if c.sub == nil {
		return nil
	}
	return c.sub.C()
}

// AddCredits replenishes the session's flow-control credits.
func (c *Connection) AddCredits(n int64) {
	if c.sub != nil {
		c.sub.AddCredits(n)
	}
}

// Close closes the underlying socket. The serving frame loop unwinds on
// its next read.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// ConnectionManager tracks active SWP connections.
type ConnectionManager struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewConnectionManager creates an empty connection manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		conns: make(map[string]*Connection),
	}
}

// Add registers a new connection.
func (cm *ConnectionManager) Add(conn *Connection) {
	cm.mu.Lock()
	cm.conns[conn.ID()] = conn
	cm.mu.Unlock()
}

// Remove unregisters a connection.
func (cm *ConnectionManager) Remove(connID string) {
	cm.mu.Lock()
	delete(cm.conns, connID)
	cm.mu.Unlock()
}

// Get returns a connection by ID.
func (cm *ConnectionManager) Get(connID string) (*Connection, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c, ok := cm.conns[connID]
	return c, ok
}

// Count returns the number of active connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns)
}

// All returns a snapshot of all connections.
func (cm *ConnectionManager) All() []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		out = append(out, c)
	}
	return out
}

// CloseAll disconnects every session and clears the registry. Serving
// loops clean up their own broker state as they unwind.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	conns := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		conns = append(conns, c)
	}
	cm.conns = make(map[string]*Connection)
	cm.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
