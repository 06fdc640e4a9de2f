package cluster

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridkv/gridkv-go/client/common"
	"github.com/gridkv/gridkv-go/client/protocol"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sony/gobreaker/v2"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IConnectionManager hands out at most one live connection per endpoint,
// dialing lazily on first use.
type IConnectionManager interface {
	// GetOrConnect returns the live connection to the endpoint, dialing a
	// new one if none exists.
	GetOrConnect(endpoint string) (IConnection, error)

	// ActiveConnections returns all currently live connections.
	ActiveConnections() []IConnection

	// SetCloseHandler installs the callback notified whenever a managed
	// connection dies. Must be set before the first GetOrConnect.
	SetCloseHandler(handler func(IConnection))

	// Shutdown closes all connections and refuses further dials.
	Shutdown()
}

// --------------------------------------------------------------------------
// Connection Manager
// --------------------------------------------------------------------------

type connectionManager struct {
	config    common.ClientConfig
	connector IConnector

	connections *xsync.MapOf[string, *Connection]
	breakers    *xsync.MapOf[string, *gobreaker.CircuitBreaker[net.Conn]]

	closeHandler atomic.Pointer[func(IConnection)]
	shutdown     atomic.Bool

	// dialMu serializes the slow path so concurrent callers do not dial
	// the same endpoint twice.
	dialMu sync.Mutex
}

var _ IConnectionManager = (*connectionManager)(nil)

// NewConnectionManager creates a manager dialing through the given connector.
func NewConnectionManager(config common.ClientConfig, connector IConnector) IConnectionManager {
	return &connectionManager{
		config:      config,
		connector:   connector,
		connections: xsync.NewMapOf[string, *Connection](),
		breakers:    xsync.NewMapOf[string, *gobreaker.CircuitBreaker[net.Conn]](),
	}
}

func (m *connectionManager) SetCloseHandler(handler func(IConnection)) {
	m.closeHandler.Store(&handler)
}

func (m *connectionManager) GetOrConnect(endpoint string) (IConnection, error) {
	if m.shutdown.Load() {
		return nil, protocol.ErrClientShutdown
	}

	// Fast path: reuse the live connection
	if conn, ok := m.connections.Load(endpoint); ok {
		return conn, nil
	}

	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	// Double-check after acquiring the dial lock
	if conn, ok := m.connections.Load(endpoint); ok {
		return conn, nil
	}
	if m.shutdown.Load() {
		return nil, protocol.ErrClientShutdown
	}

	netConn, err := m.breakerFor(endpoint).Execute(func() (net.Conn, error) {
		return m.dial(endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", endpoint, err)
	}

	conn := newConnection(endpoint, netConn, m.connectionClosed)
	m.connections.Store(endpoint, conn)
	Logger.Infof("connected to %s using %s transport", endpoint, m.connector.GetName())
	return conn, nil
}

func (m *connectionManager) ActiveConnections() []IConnection {
	connections := make([]IConnection, 0)
	m.connections.Range(func(_ string, conn *Connection) bool {
		connections = append(connections, conn)
		return true
	})
	return connections
}

func (m *connectionManager) Shutdown() {
	if !m.shutdown.CompareAndSwap(false, true) {
		return
	}
	m.connections.Range(func(_ string, conn *Connection) bool {
		_ = conn.Close()
		return true
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial establishes and upgrades a single connection.
func (m *connectionManager) dial(endpoint string) (net.Conn, error) {
	conn, err := m.connector.Connect(endpoint)
	if err != nil {
		return nil, err
	}
	if err := m.connector.UpgradeConnection(conn, m.config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	return conn, nil
}

// breakerFor returns the circuit breaker guarding dials to the endpoint.
func (m *connectionManager) breakerFor(endpoint string) *gobreaker.CircuitBreaker[net.Conn] {
	breaker, _ := m.breakers.LoadOrCompute(endpoint, func() *gobreaker.CircuitBreaker[net.Conn] {
		settings := gobreaker.Settings{
			Name:     endpoint,
			Interval: 30 * time.Second,
			Timeout:  10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[net.Conn](settings)
	})
	return breaker
}

// connectionClosed drops the dead connection from the live map and notifies
// the installed close handler.
func (m *connectionManager) connectionClosed(conn *Connection) {
	m.connections.Compute(conn.endpoint, func(current *Connection, loaded bool) (*Connection, bool) {
		if current == conn {
			return nil, true // delete
		}
		return current, false
	})

	Logger.Warningf("connection to %s closed", conn.endpoint)

	if handler := m.closeHandler.Load(); handler != nil && *handler != nil {
		(*handler)(conn)
	}
}
