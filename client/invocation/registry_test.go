package invocation

import (
	"sync"
	"testing"
	"time"

	"github.com/gridkv/gridkv-go/client/protocol"
)

func TestPopPendingIsExclusive(t *testing.T) {
	registry := NewRegistry()
	inv := newInvocation(protocol.NewPingRequest(), time.Minute)
	registry.RegisterPending(7, inv)

	got, ok := registry.PopPending(7)
	if !ok || got != inv {
		t.Fatalf("expected to pop the registered invocation")
	}
	if _, ok := registry.PopPending(7); ok {
		t.Errorf("second pop must miss")
	}
	if registry.PendingCount() != 0 {
		t.Errorf("expected empty pending table, got %d entries", registry.PendingCount())
	}
}

func TestRemovePendingIfSame(t *testing.T) {
	registry := NewRegistry()
	first := newInvocation(protocol.NewPingRequest(), time.Minute)
	second := newInvocation(protocol.NewPingRequest(), time.Minute)

	registry.RegisterPending(1, first)

	// A stale remove for a different invocation must not evict the entry.
	if registry.RemovePendingIfSame(1, second) {
		t.Errorf("removed an entry that belongs to a different invocation")
	}
	if registry.PendingCount() != 1 {
		t.Fatalf("entry must survive a mismatched remove")
	}

	if !registry.RemovePendingIfSame(1, first) {
		t.Errorf("matching remove should report success")
	}
	if registry.RemovePendingIfSame(1, first) {
		t.Errorf("second remove must be a no-op")
	}
	if registry.PendingCount() != 0 {
		t.Errorf("expected empty pending table, got %d entries", registry.PendingCount())
	}
}

func TestConcurrentPopPending(t *testing.T) {
	registry := NewRegistry()
	inv := newInvocation(protocol.NewPingRequest(), time.Minute)
	registry.RegisterPending(42, inv)

	const racers = 16
	var wg sync.WaitGroup
	var hits sync.Map

	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := registry.PopPending(42); ok {
				hits.Store(i, true)
			}
		}()
	}
	wg.Wait()

	count := 0
	hits.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count != 1 {
		t.Errorf("expected exactly one racer to win the pop, got %d", count)
	}
}

func TestListenerTableSurvivesPendingPop(t *testing.T) {
	registry := NewRegistry()
	inv := newInvocation(protocol.NewPingRequest(), time.Minute)

	registry.RegisterPending(9, inv)
	registry.RegisterListener(9, inv)

	registry.PopPending(9)

	got, ok := registry.Listener(9)
	if !ok || got != inv {
		t.Fatalf("listener entry must survive the pending pop")
	}
	if registry.ListenerCount() != 1 {
		t.Errorf("expected one listener, got %d", registry.ListenerCount())
	}

	registry.RemoveListener(9)
	if registry.ListenerCount() != 0 {
		t.Errorf("expected empty listener table, got %d entries", registry.ListenerCount())
	}
}

func TestEachPendingVisitsAllEntries(t *testing.T) {
	registry := NewRegistry()
	for id := int64(1); id <= 5; id++ {
		registry.RegisterPending(id, newInvocation(protocol.NewPingRequest(), time.Minute))
	}

	seen := map[int64]bool{}
	registry.EachPending(func(correlationID int64, _ *Invocation) {
		seen[correlationID] = true
	})

	if len(seen) != 5 {
		t.Errorf("expected to visit 5 entries, visited %d", len(seen))
	}
}
