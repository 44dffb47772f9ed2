// Package opcua implements the protocol session boundary on top of the
// gopcua client library: endpoint discovery, session establishment and
// per-node reads with value normalization.
package opcua

import "time"

// DialerConfig holds connection settings shared by all servers.
type DialerConfig struct {
	// ConnectTimeout bounds discovery plus session establishment
	ConnectTimeout time.Duration

	// RequestTimeout bounds a single read request
	RequestTimeout time.Duration

	// SessionTimeout is the requested OPC UA session lifetime
	SessionTimeout time.Duration

	// ApplicationName and ApplicationURI identify the gateway to servers
	ApplicationName string
	ApplicationURI  string

	// Circuit breaker settings for the shared wire read. The breaker
	// makes a dead endpoint fail fast for all tag loops of a server;
	// it never reconnects.
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	BreakerThreshold   uint32
}

// withDefaults fills unset fields with working defaults.
func (c DialerConfig) withDefaults() DialerConfig {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 15 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = 30 * time.Minute
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "SCADA Gateway"
	}
	if c.ApplicationURI == "" {
		c.ApplicationURI = "urn:scada:gateway"
	}
	if c.BreakerMaxRequests == 0 {
		c.BreakerMaxRequests = 3
	}
	if c.BreakerInterval == 0 {
		c.BreakerInterval = 10 * time.Second
	}
	if c.BreakerTimeout == 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = 5
	}
	return c
}
