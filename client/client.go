package client

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridkv/gridkv-go/client/cluster"
	"github.com/gridkv/gridkv-go/client/common"
	"github.com/gridkv/gridkv-go/client/invocation"
	"github.com/gridkv/gridkv-go/client/protocol"
	"github.com/gridkv/gridkv-go/client/reactor"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// Client bundles the invocation service with its collaborators. All methods
// are safe for concurrent use.
type Client struct {
	config      common.ClientConfig
	connections cluster.IConnectionManager
	partitions  *cluster.PartitionTable
	invocations *invocation.Service
}

// New assembles a client from the configuration. No connection is dialed
// yet; connections are established lazily by the first invocation routed to
// an endpoint.
func New(config common.ClientConfig) (*Client, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ClientName == "" {
		config.ClientName = "gridkv-" + uuid.NewString()[:8]
	}

	connector, err := cluster.NewConnector(config.Transport)
	if err != nil {
		return nil, err
	}
	balancer, err := cluster.NewLoadBalancer(config.Balancer, config.Endpoints)
	if err != nil {
		return nil, err
	}

	// Bootstrap ownership by spreading partitions over the configured
	// endpoints; a topology feed replaces this via PartitionTable.Update.
	partitions := cluster.NewPartitionTable(config.PartitionCount)
	partitions.AssignRoundRobin(config.Endpoints)

	connections := cluster.NewConnectionManager(config, connector)
	invocations := invocation.NewService(
		config,
		connections,
		partitions,
		balancer,
		reactor.NewTimeService(),
	)
	connections.SetCloseHandler(invocations.ConnectionClosed)

	Logger.Infof("client %s created for endpoints %v", config.ClientName, config.Endpoints)

	return &Client{
		config:      config,
		connections: connections,
		partitions:  partitions,
		invocations: invocations,
	}, nil
}

// Name returns the generated or configured instance name of this client.
func (c *Client) Name() string { return c.config.ClientName }

// Invocations returns the invocation service carrying the InvokeOn* entry
// points.
func (c *Client) Invocations() *invocation.Service { return c.invocations }

// Partitions returns the partition table, updatable from a topology feed.
func (c *Client) Partitions() *cluster.PartitionTable { return c.partitions }

// Connections returns the connection manager.
func (c *Client) Connections() cluster.IConnectionManager { return c.connections }

// Ping sends a liveness probe to a balancer-chosen member and blocks until
// the response arrives or the invocation fails. Returns the round trip time.
func (c *Client) Ping() (time.Duration, error) {
	start := time.Now()
	inv := c.invocations.InvokeOnRandomTarget(protocol.NewPingRequest(), nil)
	if _, err := inv.Future().Result(); err != nil {
		return 0, fmt.Errorf("ping failed: %w", err)
	}
	return time.Since(start), nil
}

// Shutdown fails all pending invocations and closes every connection.
func (c *Client) Shutdown() {
	c.invocations.Shutdown()
	c.connections.Shutdown()
	Logger.Infof("client %s shut down", c.config.ClientName)
}
