package ws

import (
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Connection represents a single WebSocket client connection with a write
// mutex for serializing outbound frames. It satisfies the transport handle
// interface the session registry stores.
type Connection struct {
	conn      net.Conn
	createdAt time.Time

	writeMu      sync.Mutex
	writeTimeout time.Duration

	mu       sync.Mutex
	lastRead time.Time
	closed   bool
}

func newConnection(conn net.Conn, writeTimeout time.Duration) *Connection {
	now := time.Now()
	return &Connection{
		conn:         conn,
		createdAt:    now,
		lastRead:     now,
		writeTimeout: writeTimeout,
	}
}

// Send writes a WebSocket text frame to this connection. The write mutex
// ensures that concurrent goroutines do not interleave frame bytes, which
// also preserves per-sender delivery order.
func (c *Connection) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	err := wsutil.WriteServerMessage(c.conn, ws.OpText, data)
	_ = c.conn.SetWriteDeadline(time.Time{})
	return err
}

// writePing sends a WebSocket protocol-level ping frame (opcode 0x9). The
// write mutex ensures this does not interleave with other outbound frames.
func (c *Connection) writePing() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteFrame(c.conn, ws.NewPingFrame(nil))
}

// Close closes the underlying network connection. The reader goroutine's
// next read fails and triggers disconnect handling. Safe to call more than
// once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// touch records read activity for heartbeat staleness checks.
func (c *Connection) touch() {
	c.mu.Lock()
	c.lastRead = time.Now()
	c.mu.Unlock()
}

// lastActivity returns the time of the most recent successful read.
func (c *Connection) lastActivity() time.Time {
	c.mu.Lock()
	t := c.lastRead
	c.mu.Unlock()
	return t
}
