// Package transport defines the interface for pluggable API transports.
//
// Each transport (HTTP, gRPC) serves the practice service in its own protocol.
// main starts every enabled transport and shuts them down together.
package transport

import "context"

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts serving. It blocks until the context is cancelled.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
