package cluster

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gridkv/gridkv-go/client/protocol"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("cluster")

// MessageHandler consumes inbound messages decoded from a connection.
type MessageHandler func(*protocol.ClientMessage)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IConnection is a single framed connection to a cluster member. Inbound
// messages are delivered to the installed MessageHandler from the
// connection's reader goroutine.
type IConnection interface {
	// Endpoint returns the member address this connection is bound to.
	Endpoint() string

	// Send writes one message to the member. Safe for concurrent use.
	Send(msg *protocol.ClientMessage) error

	// MessageHandler returns the installed inbound handler, nil if none.
	MessageHandler() MessageHandler

	// SetMessageHandler installs the inbound handler. Installed at most
	// once, lazily, by the invocation service.
	SetMessageHandler(handler MessageHandler)

	// Close tears the connection down and notifies the close handler.
	Close() error
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// Connection implements IConnection over a net.Conn.
type Connection struct {
	endpoint string
	conn     net.Conn
	writeMu  sync.Mutex
	handler  atomic.Pointer[MessageHandler]
	closed   atomic.Bool
	onClosed func(*Connection)
}

var _ IConnection = (*Connection)(nil)

// newConnection wraps an established net.Conn and starts the reader
// goroutine. onClosed is invoked exactly once when the connection dies,
// regardless of which side initiated it.
func newConnection(endpoint string, conn net.Conn, onClosed func(*Connection)) *Connection {
	c := &Connection{
		endpoint: endpoint,
		conn:     conn,
		onClosed: onClosed,
	}
	go c.readLoop()
	return c
}

func (c *Connection) Endpoint() string { return c.endpoint }

func (c *Connection) MessageHandler() MessageHandler {
	handler := c.handler.Load()
	if handler == nil {
		return nil
	}
	return *handler
}

func (c *Connection) SetMessageHandler(handler MessageHandler) {
	c.handler.Store(&handler)
}

func (c *Connection) Send(msg *protocol.ClientMessage) error {
	if c.closed.Load() {
		return protocol.ErrConnectionClosed
	}

	c.writeMu.Lock()
	err := msg.Write(c.conn)
	c.writeMu.Unlock()

	if err != nil {
		c.markClosed()
		return fmt.Errorf("send to %s: %w", c.endpoint, err)
	}
	return nil
}

func (c *Connection) Close() error {
	c.markClosed()
	return nil
}

// markClosed closes the socket and fires the close notification. Only the
// first caller acts; the reader goroutine and writers may race here.
func (c *Connection) markClosed() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	_ = c.conn.Close()
	if c.onClosed != nil {
		c.onClosed(c)
	}
}

// readLoop decodes frames off the wire and hands them to the installed
// handler until the connection dies.
func (c *Connection) readLoop() {
	for {
		msg, err := protocol.Read(c.conn)
		if err != nil {
			if !c.closed.Load() {
				Logger.Warningf("connection to %s lost: %v", c.endpoint, err)
			}
			c.markClosed()
			return
		}

		handler := c.MessageHandler()
		if handler == nil {
			Logger.Warningf("dropping inbound %s from %s: no handler installed", msg, c.endpoint)
			continue
		}
		handler(msg)
	}
}
