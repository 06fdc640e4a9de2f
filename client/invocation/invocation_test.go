package invocation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gridkv/gridkv-go/client/protocol"
)

func TestRoutingPredicates(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(inv *Invocation)
		connection bool
		handler    bool
		partition  bool
		address    bool
	}{
		{
			name:  "plain",
			setup: func(inv *Invocation) {},
		},
		{
			name:       "bound connection",
			setup:      func(inv *Invocation) { inv.boundConn = &fakeConn{endpoint: "a:1"} },
			connection: true,
		},
		{
			name:      "partition",
			setup:     func(inv *Invocation) { inv.partitionID = 3 },
			partition: true,
		},
		{
			name:      "partition zero is set",
			setup:     func(inv *Invocation) { inv.partitionID = 0 },
			partition: true,
		},
		{
			name:    "address",
			setup:   func(inv *Invocation) { inv.address = "b:2" },
			address: true,
		},
		{
			name:    "event handler",
			setup:   func(inv *Invocation) { inv.eventHandler = func(*protocol.ClientMessage) {} },
			handler: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvocation(protocol.NewPingRequest(), time.Minute)
			tt.setup(inv)

			if inv.HasConnection() != tt.connection {
				t.Errorf("HasConnection() = %t, want %t", inv.HasConnection(), tt.connection)
			}
			if inv.HasEventHandler() != tt.handler {
				t.Errorf("HasEventHandler() = %t, want %t", inv.HasEventHandler(), tt.handler)
			}
			if inv.HasPartitionID() != tt.partition {
				t.Errorf("HasPartitionID() = %t, want %t", inv.HasPartitionID(), tt.partition)
			}
			if inv.HasAddress() != tt.address {
				t.Errorf("HasAddress() = %t, want %t", inv.HasAddress(), tt.address)
			}
		})
	}
}

func TestResolutionGuard(t *testing.T) {
	t.Run("response wins over error", func(t *testing.T) {
		inv := newInvocation(protocol.NewPingRequest(), time.Minute)
		response := protocol.NewMessage(protocol.MsgTPing, nil)

		if !inv.SetResponse(response) {
			t.Fatalf("first resolution should win")
		}
		if inv.SetErr(errors.New("too late")) {
			t.Errorf("resolution after a response must be a no-op")
		}

		result, err := inv.Future().Result()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != response {
			t.Errorf("future carries the wrong response")
		}
	})

	t.Run("error wins over response", func(t *testing.T) {
		inv := newInvocation(protocol.NewPingRequest(), time.Minute)
		expected := errors.New("boom")

		if !inv.SetErr(expected) {
			t.Fatalf("first resolution should win")
		}
		if inv.SetResponse(protocol.NewMessage(protocol.MsgTPing, nil)) {
			t.Errorf("resolution after an error must be a no-op")
		}

		_, err := inv.Future().Result()
		if !errors.Is(err, expected) {
			t.Errorf("expected %v, got %v", expected, err)
		}
	})
}

func TestResolutionCancelsTimerOnce(t *testing.T) {
	inv := newInvocation(protocol.NewPingRequest(), time.Minute)
	timer := &fakeTimer{fn: func() {}}
	inv.timer = timer

	inv.SetResponse(protocol.NewMessage(protocol.MsgTPing, nil))
	inv.SetErr(errors.New("late"))

	if got := timer.cancels.Load(); got != 1 {
		t.Errorf("expected exactly one cancel attempt, got %d", got)
	}
}

func TestConcurrentResolution(t *testing.T) {
	inv := newInvocation(protocol.NewPingRequest(), time.Minute)

	const racers = 16
	var wg sync.WaitGroup
	var wins int64
	var winsMu sync.Mutex

	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			var won bool
			if i%2 == 0 {
				won = inv.SetResponse(protocol.NewMessage(protocol.MsgTPing, nil))
			} else {
				won = inv.SetErr(errors.New("race"))
			}
			if won {
				winsMu.Lock()
				wins++
				winsMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if !inv.Resolved() {
		t.Errorf("invocation should be resolved")
	}
}
