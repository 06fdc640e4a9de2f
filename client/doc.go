// Package client implements the core of a grid client: asynchronous
// request/response multiplexing over a small number of connections to a
// partitioned cluster.
//
// The package is organized into several subpackages:
//
//   - common: configuration structures and the logging factory shared by
//     all client packages.
//
//   - protocol: the ClientMessage wire unit, its frame codec, and the
//     remote error codec with its retryability catalog.
//
//   - future: a single-assignment result container with completion
//     signaling, blocking wait and callback composition.
//
//   - invocation: the invocation service, covering correlation id allocation,
//     routing policy, the pending/listener registries, deadline handling
//     and the retry loop.
//
//   - cluster: framed connections, the connection manager with
//     per-endpoint circuit breakers, load balancers and the partition
//     table.
//
//   - reactor: cancelable timers driving deadlines and retry backoff.
//
// The Client type in this package wires everything together.
package client
