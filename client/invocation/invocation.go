package invocation

import (
	"sync/atomic"
	"time"

	"github.com/gridkv/gridkv-go/client/cluster"
	"github.com/gridkv/gridkv-go/client/future"
	"github.com/gridkv/gridkv-go/client/protocol"
	"github.com/gridkv/gridkv-go/client/reactor"
)

// EventHandler consumes the event messages of a listener invocation.
type EventHandler func(msg *protocol.ClientMessage)

// --------------------------------------------------------------------------
// Invocation
// --------------------------------------------------------------------------

// Invocation is one logical request in flight, independent of how many send
// attempts it takes. The zero partition id is valid; -1 means unset.
//
// Resolution is guarded: the receive path, the timeout path and the
// teardown path may race to complete the future, exactly one wins and the
// losers become no-ops, including the timer cancel.
type Invocation struct {
	request      *protocol.ClientMessage
	partitionID  int32
	address      string
	boundConn    cluster.IConnection
	eventHandler EventHandler
	deadline     time.Time
	future       *future.Future[*protocol.ClientMessage]

	// correlationID is re-stamped on every send attempt.
	correlationID atomic.Int64

	// sentConn is the connection of the latest send attempt. Read by the
	// teardown scan concurrently with retries.
	sentConn atomic.Value // cluster.IConnection

	// timer is armed once, before the first registry insert, and shared
	// by all attempts.
	timer reactor.ITimer

	resolved atomic.Bool
}

func newInvocation(request *protocol.ClientMessage, timeout time.Duration) *Invocation {
	return &Invocation{
		request:     request,
		partitionID: -1,
		deadline:    time.Now().Add(timeout),
		future:      future.New[*protocol.ClientMessage](),
	}
}

// Request returns the outbound message of this invocation.
func (inv *Invocation) Request() *protocol.ClientMessage { return inv.request }

// Future carries the eventual response or failure of this invocation.
func (inv *Invocation) Future() *future.Future[*protocol.ClientMessage] { return inv.future }

// Deadline is the absolute point after which the invocation fails with a
// timeout. Retries share it; it is never extended.
func (inv *Invocation) Deadline() time.Time { return inv.deadline }

// PartitionID returns the target partition, -1 when unset.
func (inv *Invocation) PartitionID() int32 { return inv.partitionID }

// Address returns the explicit target address, empty when unset.
func (inv *Invocation) Address() string { return inv.address }

// BoundConnection returns the connection this invocation is pinned to, nil
// when it is routed freely.
func (inv *Invocation) BoundConnection() cluster.IConnection { return inv.boundConn }

// CorrelationID returns the id of the latest send attempt, 0 before the
// first send.
func (inv *Invocation) CorrelationID() int64 { return inv.correlationID.Load() }

// --------------------------------------------------------------------------
// Routing predicates
// --------------------------------------------------------------------------

func (inv *Invocation) HasConnection() bool   { return inv.boundConn != nil }
func (inv *Invocation) HasEventHandler() bool { return inv.eventHandler != nil }
func (inv *Invocation) HasPartitionID() bool  { return inv.partitionID >= 0 }
func (inv *Invocation) HasAddress() bool      { return inv.address != "" }

// --------------------------------------------------------------------------
// Resolution
// --------------------------------------------------------------------------

// SetResponse resolves the invocation with a response message. Reports
// whether this call won the resolution.
func (inv *Invocation) SetResponse(msg *protocol.ClientMessage) bool {
	return inv.resolve(func() { inv.future.SetResult(msg) })
}

// SetErr resolves the invocation with an error. Reports whether this call
// won the resolution.
func (inv *Invocation) SetErr(err error) bool {
	return inv.resolve(func() { inv.future.SetErr(err) })
}

// resolve wins the single-resolution guard, cancels the deadline timer
// best-effort and completes the future. Losing callers do nothing, they
// must not even touch the timer.
func (inv *Invocation) resolve(complete func()) bool {
	if !inv.resolved.CompareAndSwap(false, true) {
		return false
	}
	if inv.timer != nil {
		inv.timer.Cancel()
	}
	complete()
	return true
}

// Resolved reports whether the invocation already completed.
func (inv *Invocation) Resolved() bool { return inv.resolved.Load() }

// --------------------------------------------------------------------------
// Send-attempt bookkeeping (service internal)
// --------------------------------------------------------------------------

func (inv *Invocation) setCorrelationID(id int64) { inv.correlationID.Store(id) }

func (inv *Invocation) setSentConnection(conn cluster.IConnection) { inv.sentConn.Store(conn) }

// SentConnection returns the connection of the latest send attempt, nil
// before the first send.
func (inv *Invocation) SentConnection() cluster.IConnection {
	conn, _ := inv.sentConn.Load().(cluster.IConnection)
	return conn
}
