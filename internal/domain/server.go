// Package domain contains the core business entities of the gateway.
// These are protocol-agnostic: the OPC UA specifics live in the adapters.
package domain

import (
	"fmt"
	"time"
)

// SecurityPolicy names the OPC UA security profile requested for a server.
type SecurityPolicy string

const (
	SecurityPolicyNone           SecurityPolicy = "None"
	SecurityPolicyBasic256       SecurityPolicy = "Basic256"
	SecurityPolicyBasic256Sha256 SecurityPolicy = "Basic256Sha256"
)

// Server describes one configured automation server and its tags.
type Server struct {
	// ID is the unique identifier for this server
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable name for the server
	Name string `json:"name" yaml:"name"`

	// Endpoint is the discovery URL, e.g. "opc.tcp://10.0.0.5:4840"
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Security is the requested security profile
	Security SecurityPolicy `json:"security,omitempty" yaml:"security,omitempty"`

	// Username and Password are optional session credentials.
	// Empty username means anonymous authentication.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// Enabled indicates whether the gateway should connect to this server
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Tags defines the data points sampled from this server, in config order
	Tags []Tag `json:"tags" yaml:"tags"`
}

// Tag describes a single sampled data point.
type Tag struct {
	// NodeID is the protocol-specific address string, e.g. "ns=2;s=Temperature"
	NodeID string `json:"node_id" yaml:"node_id"`

	// Name is a human-readable name for the tag
	Name string `json:"name" yaml:"name"`

	// DataType is the declared type of the sampled value
	DataType DataType `json:"data_type" yaml:"data_type"`

	// PollInterval is how often this tag is read
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// Enabled indicates whether this tag should be actively polled
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Unit is the engineering unit, e.g. "°C", "bar"
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Validate performs validation on the server configuration.
func (s *Server) Validate() error {
	if s.ID == "" {
		return ErrServerIDRequired
	}
	if s.Name == "" {
		return ErrServerNameRequired
	}
	if s.Endpoint == "" {
		return ErrEndpointRequired
	}
	for i := range s.Tags {
		if err := s.Tags[i].Validate(); err != nil {
			return fmt.Errorf("invalid tag %q for server %q: %w", s.Tags[i].NodeID, s.ID, err)
		}
	}
	return nil
}

// Validate performs validation on the tag configuration.
func (t *Tag) Validate() error {
	if t.NodeID == "" {
		return ErrNodeIDRequired
	}
	if t.Name == "" {
		return ErrTagNameRequired
	}
	if t.Enabled && t.PollInterval <= 0 {
		return ErrPollIntervalInvalid
	}
	return nil
}

// EnabledTags returns the enabled tags of the server, preserving config order.
func (s *Server) EnabledTags() []*Tag {
	tags := make([]*Tag, 0, len(s.Tags))
	for i := range s.Tags {
		if s.Tags[i].Enabled {
			tags = append(tags, &s.Tags[i])
		}
	}
	return tags
}
