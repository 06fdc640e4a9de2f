package cluster

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/gridkv/gridkv-go/client/common"
	"github.com/gridkv/gridkv-go/client/protocol"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// ILoadBalancer picks the target endpoint for invocations without an
// explicit target.
type ILoadBalancer interface {
	// Next returns the endpoint the next invocation should go to.
	Next() (string, error)
}

// NewLoadBalancer creates the balancer selected by the configuration.
func NewLoadBalancer(kind string, endpoints []string) (ILoadBalancer, error) {
	switch kind {
	case common.BalancerRoundRobin:
		return NewRoundRobinBalancer(endpoints), nil
	case common.BalancerRandom:
		return NewRandomBalancer(endpoints), nil
	default:
		return nil, fmt.Errorf("unknown balancer: %q", kind)
	}
}

// --------------------------------------------------------------------------
// Round Robin
// --------------------------------------------------------------------------

type roundRobinBalancer struct {
	endpoints []string
	next      atomic.Uint64
}

// NewRoundRobinBalancer cycles through the endpoints in order.
func NewRoundRobinBalancer(endpoints []string) ILoadBalancer {
	return &roundRobinBalancer{endpoints: endpoints}
}

func (b *roundRobinBalancer) Next() (string, error) {
	if len(b.endpoints) == 0 {
		return "", protocol.ErrNoEndpoints
	}
	if len(b.endpoints) == 1 {
		// optimize for single endpoint
		return b.endpoints[0], nil
	}
	index := (b.next.Add(1) - 1) % uint64(len(b.endpoints))
	return b.endpoints[index], nil
}

// --------------------------------------------------------------------------
// Random
// --------------------------------------------------------------------------

type randomBalancer struct {
	endpoints []string
}

// NewRandomBalancer picks a uniformly random endpoint per invocation.
func NewRandomBalancer(endpoints []string) ILoadBalancer {
	return &randomBalancer{endpoints: endpoints}
}

func (b *randomBalancer) Next() (string, error) {
	if len(b.endpoints) == 0 {
		return "", protocol.ErrNoEndpoints
	}
	return b.endpoints[rand.Intn(len(b.endpoints))], nil
}
