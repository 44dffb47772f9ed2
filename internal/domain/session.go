package domain

import (
	"context"
	"time"
)

// RawSample is what one protocol read returns before normalization.
type RawSample struct {
	// Value is the raw protocol value, possibly a provider-specific
	// wrapper type. Nil means the server returned a null value.
	Value interface{}

	// Good reports whether the protocol status code was good
	Good bool

	// SourceTimestamp is the server-provided timestamp, zero if absent
	SourceTimestamp time.Time
}

// Session is an established, stateful connection capable of serving
// multiple reads. Reads are logically independent requests and may be
// issued concurrently by the tag loops of one server; only the lifecycle
// manager may close the session.
type Session interface {
	// Read samples one node. A transport-level failure returns an error
	// wrapping ErrReadFailed; a completed read with a bad status code
	// returns a RawSample with Good=false and no error.
	Read(ctx context.Context, nodeID string) (RawSample, error)

	// Close releases the connection. Idempotent.
	Close() error
}

// Dialer establishes sessions. Discovery and connection are performed once
// per startup attempt; there is no reconnect path.
type Dialer interface {
	// Connect discovers the server's endpoints, picks one and establishes
	// a session. Failures wrap ErrDiscoveryFailed, ErrNoEndpoints or
	// ErrConnectFailed.
	Connect(ctx context.Context, server *Server) (Session, error)
}
