package domain

import "errors"

// Server configuration errors.
var (
	ErrServerIDRequired    = errors.New("server ID is required")
	ErrServerNameRequired  = errors.New("server name is required")
	ErrEndpointRequired    = errors.New("server endpoint is required")
	ErrNodeIDRequired      = errors.New("tag node ID is required")
	ErrTagNameRequired     = errors.New("tag name is required")
	ErrPollIntervalInvalid = errors.New("poll interval must be positive for enabled tags")
	ErrNoEnabledServers    = errors.New("no enabled server configured")
)

// Connection errors. Discovery and connect failures are terminal for a run:
// the pipeline ends in STOPPED and is not retried.
var (
	ErrDiscoveryFailed = errors.New("endpoint discovery failed")
	ErrNoEndpoints     = errors.New("no endpoints found")
	ErrConnectFailed   = errors.New("connection failed")
	ErrSessionClosed   = errors.New("session closed")
)

// Read errors. Always local to one poll cycle and recovered.
var (
	ErrReadFailed    = errors.New("read operation failed")
	ErrBadStatus     = errors.New("bad status code")
	ErrInvalidNodeID = errors.New("invalid node ID")
)

// MQTT errors.
var (
	ErrMQTTConnectionFailed = errors.New("MQTT connection failed")
	ErrMQTTPublishFailed    = errors.New("MQTT publish failed")
	ErrMQTTNotConnected     = errors.New("MQTT client not connected")
)

// Lifecycle errors.
var (
	ErrAlreadyStarted = errors.New("gateway already started")
	ErrValueNotFound  = errors.New("no value recorded for tag")
)
