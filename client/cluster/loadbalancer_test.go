package cluster

import (
	"errors"
	"testing"

	"github.com/gridkv/gridkv-go/client/common"
	"github.com/gridkv/gridkv-go/client/protocol"
)

func TestNewLoadBalancer(t *testing.T) {
	endpoints := []string{"a:5701", "b:5701"}

	if _, err := NewLoadBalancer(common.BalancerRoundRobin, endpoints); err != nil {
		t.Errorf("round-robin: unexpected error: %v", err)
	}
	if _, err := NewLoadBalancer(common.BalancerRandom, endpoints); err != nil {
		t.Errorf("random: unexpected error: %v", err)
	}
	if _, err := NewLoadBalancer("sticky", endpoints); err == nil {
		t.Errorf("unknown balancer kind must be rejected")
	}
}

func TestRoundRobinCyclesEndpoints(t *testing.T) {
	endpoints := []string{"a:5701", "b:5701", "c:5701"}
	balancer := NewRoundRobinBalancer(endpoints)

	for round := 0; round < 2; round++ {
		for _, want := range endpoints {
			got, err := balancer.Next()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				t.Errorf("round %d: got %s, want %s", round, got, want)
			}
		}
	}
}

func TestRoundRobinSingleEndpoint(t *testing.T) {
	balancer := NewRoundRobinBalancer([]string{"a:5701"})

	for i := 0; i < 3; i++ {
		got, err := balancer.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "a:5701" {
			t.Errorf("got %s, want a:5701", got)
		}
	}
}

func TestRandomReturnsKnownEndpoint(t *testing.T) {
	endpoints := map[string]bool{"a:5701": true, "b:5701": true}
	balancer := NewRandomBalancer([]string{"a:5701", "b:5701"})

	for i := 0; i < 32; i++ {
		got, err := balancer.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !endpoints[got] {
			t.Fatalf("balancer returned unknown endpoint %s", got)
		}
	}
}

func TestBalancersRejectEmptyEndpointList(t *testing.T) {
	for name, balancer := range map[string]ILoadBalancer{
		"round-robin": NewRoundRobinBalancer(nil),
		"random":      NewRandomBalancer(nil),
	} {
		if _, err := balancer.Next(); !errors.Is(err, protocol.ErrNoEndpoints) {
			t.Errorf("%s: expected ErrNoEndpoints, got %v", name, err)
		}
	}
}
