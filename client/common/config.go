package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultInvocationTimeout is the absolute deadline applied to an
	// invocation when the configuration does not set one. Retries of the
	// same invocation share this deadline.
	DefaultInvocationTimeout = 120 * time.Second

	// DefaultRetryPause is the wait between two send attempts of the same
	// invocation.
	DefaultRetryPause = 1 * time.Second
)

// Balancer selection for invocations without an explicit target.
const (
	BalancerRoundRobin = "roundrobin"
	BalancerRandom     = "random"
)

// --------------------------------------------------------------------------
// Socket configuration
// --------------------------------------------------------------------------

// SocketConf holds buffer sizes applied to every new connection.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP-specific socket options.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for the grid client.
type ClientConfig struct {
	// ClientName identifies this client instance in logs. Generated from a
	// UUID when empty.
	ClientName string

	// Endpoints are the cluster member addresses the client may connect to.
	Endpoints []string

	// Transport selects the connector ("tcp" or "unix").
	Transport string

	// Balancer selects the target choice strategy for invocations without
	// an explicit target ("roundrobin" or "random").
	Balancer string

	// InvocationTimeout is the absolute per-invocation deadline.
	InvocationTimeout time.Duration

	// RetryPause is the backoff between send attempts of one invocation.
	RetryPause time.Duration

	// RedoOperation retries non-idempotent requests on retryable server
	// errors. Off by default: a retry may execute an operation twice when
	// the response of a completed attempt was lost.
	RedoOperation bool

	// PartitionCount is the number of partitions the cluster is configured
	// with. Used to derive partition ids from keys.
	PartitionCount int32

	SocketConf SocketConf
	TCPConf    TCPConf

	// Logging configuration
	LogLevel string
}

// SetDefaults fills unset fields with their default values.
func (c *ClientConfig) SetDefaults() {
	if c.Transport == "" {
		c.Transport = "tcp"
	}
	if c.Balancer == "" {
		c.Balancer = BalancerRoundRobin
	}
	if c.InvocationTimeout <= 0 {
		c.InvocationTimeout = DefaultInvocationTimeout
	}
	if c.RetryPause <= 0 {
		c.RetryPause = DefaultRetryPause
	}
	if c.PartitionCount <= 0 {
		c.PartitionCount = 271
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for unusable values.
func (c *ClientConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	switch c.Transport {
	case "tcp", "unix":
	default:
		return fmt.Errorf("unknown transport: %q", c.Transport)
	}
	switch c.Balancer {
	case BalancerRoundRobin, BalancerRandom:
		return nil
	default:
		return fmt.Errorf("unknown balancer: %q", c.Balancer)
	}
}

// String returns a formatted string representation of the configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client")
	addField("Name", c.ClientName)
	addField("Transport", c.Transport)
	addField("Balancer", c.Balancer)
	addField("Invocation Timeout", c.InvocationTimeout.String())
	addField("Retry Pause", c.RetryPause.String())
	addField("Redo Operation", strconv.FormatBool(c.RedoOperation))
	addField("Partition Count", strconv.Itoa(int(c.PartitionCount)))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
