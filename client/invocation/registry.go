package invocation

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps live correlation ids to invocations. The pending table
// holds one-shot requests awaiting their single response, the listener
// table holds subscriptions awaiting an unbounded event stream. A listener
// invocation sits in both until its first response arrives.
type Registry struct {
	pending   *xsync.MapOf[int64, *Invocation]
	listeners *xsync.MapOf[int64, *Invocation]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pending:   xsync.NewMapOf[int64, *Invocation](),
		listeners: xsync.NewMapOf[int64, *Invocation](),
	}
}

// --------------------------------------------------------------------------
// Pending table
// --------------------------------------------------------------------------

// RegisterPending inserts the invocation under the correlation id of its
// current send attempt.
func (r *Registry) RegisterPending(correlationID int64, inv *Invocation) {
	r.pending.Store(correlationID, inv)
}

// PopPending atomically removes and returns the pending invocation for the
// correlation id. The atomicity guarantees at most one caller receives the
// invocation when the receive path races a teardown scan.
func (r *Registry) PopPending(correlationID int64) (*Invocation, bool) {
	return r.pending.LoadAndDelete(correlationID)
}

// RemovePendingIfSame removes the table entry only if it still maps to the
// given invocation. Used by paths that know the invocation but must not
// evict a successor that reused the id slot. Reports whether it removed.
func (r *Registry) RemovePendingIfSame(correlationID int64, inv *Invocation) bool {
	removed := false
	r.pending.Compute(correlationID, func(current *Invocation, loaded bool) (*Invocation, bool) {
		if loaded && current == inv {
			removed = true
			return nil, true // delete
		}
		return current, !loaded
	})
	return removed
}

// EachPending calls fn for a snapshot of the pending table.
func (r *Registry) EachPending(fn func(correlationID int64, inv *Invocation)) {
	r.pending.Range(func(correlationID int64, inv *Invocation) bool {
		fn(correlationID, inv)
		return true
	})
}

// PendingCount returns the number of requests awaiting a response.
func (r *Registry) PendingCount() int {
	return r.pending.Size()
}

// --------------------------------------------------------------------------
// Listener table
// --------------------------------------------------------------------------

// RegisterListener inserts a subscription invocation. The entry survives
// the first response and is only removed by teardown or shutdown.
func (r *Registry) RegisterListener(correlationID int64, inv *Invocation) {
	r.listeners.Store(correlationID, inv)
}

// Listener returns the subscription registered under the correlation id.
func (r *Registry) Listener(correlationID int64) (*Invocation, bool) {
	return r.listeners.Load(correlationID)
}

// RemoveListener drops a subscription from the table.
func (r *Registry) RemoveListener(correlationID int64) {
	r.listeners.Delete(correlationID)
}

// EachListener calls fn for a snapshot of the listener table.
func (r *Registry) EachListener(fn func(correlationID int64, inv *Invocation)) {
	r.listeners.Range(func(correlationID int64, inv *Invocation) bool {
		fn(correlationID, inv)
		return true
	})
}

// ListenerCount returns the number of registered subscriptions.
func (r *Registry) ListenerCount() int {
	return r.listeners.Size()
}
