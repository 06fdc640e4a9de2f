package invocation

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gridkv/gridkv-go/client/cluster"
	"github.com/gridkv/gridkv-go/client/common"
	"github.com/gridkv/gridkv-go/client/protocol"
	"github.com/gridkv/gridkv-go/client/reactor"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("invocation")

// Service orchestrates invocations: it allocates correlation ids, applies
// the routing policy, hands messages to connections, arms per-invocation
// deadline timers, dispatches inbound messages and drives the retry loop.
//
// Concurrency: callers invoke from arbitrary goroutines, connections
// deliver inbound messages from their reader goroutines, and timers fire
// retries and timeouts from the timer service. All shared state is either
// atomic or lives in the Registry.
type Service struct {
	config common.ClientConfig

	connections cluster.IConnectionManager
	partitions  cluster.IPartitionRouter
	balancer    cluster.ILoadBalancer
	timers      reactor.ITimerService

	registry          *Registry
	nextCorrelationID atomic.Int64
	shutdown          atomic.Bool
}

// NewService wires the service to its collaborators. The configuration's
// redo flag decides whether retryable server errors re-send requests that
// are not marked retryable themselves.
func NewService(
	config common.ClientConfig,
	connections cluster.IConnectionManager,
	partitions cluster.IPartitionRouter,
	balancer cluster.ILoadBalancer,
	timers reactor.ITimerService,
) *Service {
	return &Service{
		config:      config,
		connections: connections,
		partitions:  partitions,
		balancer:    balancer,
		timers:      timers,
		registry:    NewRegistry(),
	}
}

// Registry exposes the correlation tables, mainly for diagnostics.
func (s *Service) Registry() *Registry { return s.registry }

// --------------------------------------------------------------------------
// Entry points
// --------------------------------------------------------------------------

// InvokeOnConnection sends the request on the given connection and pins it
// there: such an invocation is never retried on a different connection.
// handler may be nil; a non-nil handler subscribes to the event stream
// established by the request.
func (s *Service) InvokeOnConnection(msg *protocol.ClientMessage, conn cluster.IConnection, handler EventHandler) *Invocation {
	inv := newInvocation(msg, s.config.InvocationTimeout)
	inv.boundConn = conn
	inv.eventHandler = handler
	s.invoke(inv)
	return inv
}

// InvokeOnPartition routes the request to the current owner of the
// partition. Ownership is re-resolved on every retry.
func (s *Service) InvokeOnPartition(msg *protocol.ClientMessage, partitionID int32, handler EventHandler) *Invocation {
	inv := newInvocation(msg, s.config.InvocationTimeout)
	inv.partitionID = partitionID
	inv.eventHandler = handler
	s.invoke(inv)
	return inv
}

// InvokeOnTarget routes the request to an explicit member address.
func (s *Service) InvokeOnTarget(msg *protocol.ClientMessage, address string, handler EventHandler) *Invocation {
	inv := newInvocation(msg, s.config.InvocationTimeout)
	inv.address = address
	inv.eventHandler = handler
	s.invoke(inv)
	return inv
}

// InvokeOnRandomTarget lets the load balancer pick the target, again on
// every retry.
func (s *Service) InvokeOnRandomTarget(msg *protocol.ClientMessage, handler EventHandler) *Invocation {
	inv := newInvocation(msg, s.config.InvocationTimeout)
	inv.eventHandler = handler
	s.invoke(inv)
	return inv
}

// --------------------------------------------------------------------------
// Routing and send path
// --------------------------------------------------------------------------

// invoke applies the routing priority and sends. It runs for the first
// attempt and for every retry, so partition owners and balancer choices are
// re-resolved each time. Routing failures go through the same failure
// classification as remote errors, so transient cluster state is healed by
// the retry loop rather than surfacing to the caller.
func (s *Service) invoke(inv *Invocation) {
	if s.shutdown.Load() {
		s.handleError(inv, protocol.ErrClientShutdown)
		return
	}
	// A scheduled retry may fire after the deadline timer already resolved
	// the invocation; a resolved invocation must not be sent again.
	if inv.Resolved() {
		return
	}

	switch {
	case inv.HasConnection():
		s.send(inv, inv.BoundConnection())
	case inv.HasPartitionID():
		owner, err := s.partitions.Owner(inv.PartitionID())
		if err != nil {
			s.handleError(inv, err)
			return
		}
		s.sendToEndpoint(inv, owner)
	case inv.HasAddress():
		s.sendToEndpoint(inv, inv.Address())
	default:
		endpoint, err := s.balancer.Next()
		if err != nil {
			s.handleError(inv, err)
			return
		}
		s.sendToEndpoint(inv, endpoint)
	}
}

func (s *Service) sendToEndpoint(inv *Invocation, endpoint string) {
	conn, err := s.connections.GetOrConnect(endpoint)
	if err != nil {
		s.handleError(inv, err)
		return
	}
	s.send(inv, conn)
}

// send stamps the message with a fresh correlation id, registers the
// invocation and hands the message to the connection. The registry insert
// happens before the write so a response racing back cannot miss its entry.
func (s *Service) send(inv *Invocation, conn cluster.IConnection) {
	correlationID := s.nextCorrelationID.Add(1)

	msg := inv.Request()
	msg.SetCorrelationID(correlationID)
	msg.SetPartitionID(inv.PartitionID())

	inv.setCorrelationID(correlationID)
	inv.setSentConnection(conn)

	// The deadline timer is armed once; retries run against the original
	// deadline.
	if inv.timer == nil {
		inv.timer = s.timers.ScheduleAt(inv.Deadline(), func() { s.onTimeout(inv) })
	}

	s.registry.RegisterPending(correlationID, inv)
	if inv.HasEventHandler() {
		s.registry.RegisterListener(correlationID, inv)
	}

	// The timeout path removes the entry under the id it read; if it won
	// between the stamp and the insert, this entry would outlive the
	// invocation. Take it back out instead of sending.
	if inv.Resolved() {
		s.registry.RemovePendingIfSame(correlationID, inv)
		if inv.HasEventHandler() {
			s.registry.RemoveListener(correlationID)
		}
		return
	}

	if conn.MessageHandler() == nil {
		conn.SetMessageHandler(s.HandleClientMessage)
	}

	Logger.Debugf("sending %s to %s", msg, conn.Endpoint())
	metricSends.Inc()

	if err := conn.Send(msg); err != nil {
		// No response will ever arrive for this attempt's id.
		s.registry.RemovePendingIfSame(correlationID, inv)
		if inv.HasEventHandler() {
			s.registry.RemoveListener(correlationID)
		}
		s.handleError(inv, err)
	}
}

// --------------------------------------------------------------------------
// Receive path
// --------------------------------------------------------------------------

// HandleClientMessage is the single inbound dispatch entry point. It is
// installed as the message handler of every connection the service sends
// on. Messages with an unknown correlation id are benign races (stale
// responses after timeout or teardown) and are logged and dropped.
func (s *Service) HandleClientMessage(msg *protocol.ClientMessage) {
	correlationID := msg.CorrelationID()

	if msg.HasEventFlag() {
		inv, ok := s.registry.Listener(correlationID)
		if !ok {
			Logger.Warningf("got event message with unknown correlation id: %s", msg)
			metricUnknownCorrelation.Inc()
			return
		}
		s.handleEvent(inv, msg)
		return
	}

	inv, ok := s.registry.PopPending(correlationID)
	if !ok {
		Logger.Warningf("got message with unknown correlation id: %s", msg)
		metricUnknownCorrelation.Inc()
		return
	}

	if msg.Type() == protocol.MsgTError {
		s.handleError(inv, protocol.DecodeError(msg))
		return
	}

	inv.SetResponse(msg)
}

// handleEvent feeds one event message to the invocation's handler. Handler
// failures are isolated: the subscription stays registered and the panic is
// logged, never propagated into the reader goroutine.
func (s *Service) handleEvent(inv *Invocation, msg *protocol.ClientMessage) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Warningf("error handling event %s: %v", msg, r)
		}
	}()
	metricEvents.Inc()
	inv.eventHandler(msg)
}

// --------------------------------------------------------------------------
// Failure classification and retry
// --------------------------------------------------------------------------

// handleError classifies a failure and either schedules a retry or
// resolves the invocation terminally.
func (s *Service) handleError(inv *Invocation, err error) {
	Logger.Debugf("got error for request %s: %v", inv.Request(), err)

	if protocol.IsTransportError(err) {
		if s.tryRetry(inv) {
			return
		}
	} else if protocol.IsRetryableError(err) {
		if inv.Request().Retryable() || s.config.RedoOperation {
			if s.tryRetry(inv) {
				return
			}
		}
	}

	metricErrors.Inc()
	inv.SetErr(err)
}

// tryRetry reports whether it took responsibility for the invocation. It
// refuses invocations pinned to a connection (the caller resolves those
// with the original error) and converts an exceeded deadline into a
// terminal timeout instead of another attempt. Otherwise the re-invocation
// is scheduled after the configured pause and re-runs the full routing
// algorithm.
func (s *Service) tryRetry(inv *Invocation) bool {
	if inv.HasConnection() {
		return false
	}
	if !time.Now().Before(inv.Deadline()) {
		if inv.SetErr(fmt.Errorf("%w after %s", protocol.ErrTimeout, s.config.InvocationTimeout)) {
			metricTimeouts.Inc()
		}
		return true
	}

	// The re-invocation registers under a fresh correlation id; the
	// listener entry of the failed attempt must not linger under the old one.
	if inv.HasEventHandler() {
		s.registry.RemoveListener(inv.CorrelationID())
	}

	Logger.Debugf("rescheduling request %s to be retried in %s", inv.Request(), s.config.RetryPause)
	metricRetries.Inc()
	s.timers.Schedule(s.config.RetryPause, func() { s.invoke(inv) })
	return true
}

// onTimeout fires when the deadline passes with the invocation possibly
// still unresolved. It races the receive path; the resolution guard makes
// the loser a no-op.
func (s *Service) onTimeout(inv *Invocation) {
	s.registry.RemovePendingIfSame(inv.CorrelationID(), inv)
	if inv.SetErr(fmt.Errorf("%w after %s", protocol.ErrTimeout, s.config.InvocationTimeout)) {
		metricTimeouts.Inc()
		Logger.Warningf("request %s timed out", inv.Request())
	}
}

// --------------------------------------------------------------------------
// Teardown
// --------------------------------------------------------------------------

// ConnectionClosed fails over everything in flight on the closed
// connection. Pending invocations go through failure classification:
// connection-bound ones resolve with a connection-closed error (bound
// invocations never reroute), freely routed ones retry against their
// original deadline. Listener subscriptions on the connection are dropped;
// re-registration is the responsibility of the subscription's owner, the
// service does not re-subscribe on its own.
func (s *Service) ConnectionClosed(conn cluster.IConnection) {
	s.registry.EachPending(func(correlationID int64, inv *Invocation) {
		if inv.SentConnection() != conn && inv.BoundConnection() != conn {
			return
		}
		if s.registry.RemovePendingIfSame(correlationID, inv) {
			s.handleError(inv, protocol.ErrConnectionClosed)
		}
	})

	s.registry.EachListener(func(correlationID int64, inv *Invocation) {
		if inv.SentConnection() != conn && inv.BoundConnection() != conn {
			return
		}
		s.registry.RemoveListener(correlationID)
		Logger.Warningf("removed event listener with correlation id %d: connection to %s closed",
			correlationID, conn.Endpoint())
	})
}

// Shutdown resolves every pending invocation with a shutdown error and
// clears the listener table. Further invokes fail immediately.
func (s *Service) Shutdown() {
	if !s.shutdown.CompareAndSwap(false, true) {
		return
	}
	s.registry.EachPending(func(correlationID int64, inv *Invocation) {
		if s.registry.RemovePendingIfSame(correlationID, inv) {
			inv.SetErr(protocol.ErrClientShutdown)
		}
	})
	s.registry.EachListener(func(correlationID int64, _ *Invocation) {
		s.registry.RemoveListener(correlationID)
	})
}
