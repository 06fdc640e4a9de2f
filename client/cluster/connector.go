package cluster

import (
	"fmt"
	"net"
	"time"

	"github.com/gridkv/gridkv-go/client/common"
)

// --------------------------------------------------------------------------
// Interface Definitions for dependency injection
// --------------------------------------------------------------------------

// IConnector defines the transport-specific connection operations.
type IConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// NewConnector returns the connector for the configured transport.
func NewConnector(transport string) (IConnector, error) {
	switch transport {
	case "tcp":
		return &tcpConnector{}, nil
	case "unix":
		return &unixConnector{}, nil
	default:
		return nil, fmt.Errorf("unknown transport: %q", transport)
	}
}

// --------------------------------------------------------------------------
// TCP Connector
// --------------------------------------------------------------------------

type tcpConnector struct{}

func (c *tcpConnector) GetName() string {
	return "tcp"
}

func (c *tcpConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (c *tcpConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(config.TCPConf.TCPNoDelay); err != nil {
		return err
	}
	if config.TCPConf.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(config.TCPConf.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}
	if config.TCPConf.TCPLingerSec > 0 {
		if err := tcpConn.SetLinger(config.TCPConf.TCPLingerSec); err != nil {
			return err
		}
	}
	return applyBufferSizes(tcpConn, config.SocketConf)
}

// --------------------------------------------------------------------------
// Unix Socket Connector
// --------------------------------------------------------------------------

type unixConnector struct{}

func (c *unixConnector) GetName() string {
	return "unix"
}

func (c *unixConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}

func (c *unixConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil
	}
	return applyBufferSizes(unixConn, config.SocketConf)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// bufferedConn is satisfied by net.TCPConn and net.UnixConn.
type bufferedConn interface {
	SetReadBuffer(bytes int) error
	SetWriteBuffer(bytes int) error
}

func applyBufferSizes(conn bufferedConn, conf common.SocketConf) error {
	if conf.ReadBufferSize > 0 {
		if err := conn.SetReadBuffer(conf.ReadBufferSize); err != nil {
			return err
		}
	}
	if conf.WriteBufferSize > 0 {
		if err := conn.SetWriteBuffer(conf.WriteBufferSize); err != nil {
			return err
		}
	}
	return nil
}
