// Package config provides server configuration loading.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/savushkin-dev/scada-gateway/internal/domain"
	"gopkg.in/yaml.v3"
)

// ServerConfig represents the YAML structure for one server.
type ServerConfig struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Endpoint string      `yaml:"endpoint"`
	Security string      `yaml:"security,omitempty"`
	Username string      `yaml:"username,omitempty"`
	Password string      `yaml:"password,omitempty"`
	Enabled  bool        `yaml:"enabled"`
	Tags     []TagConfig `yaml:"tags"`
}

// TagConfig represents a tag configuration in YAML.
type TagConfig struct {
	NodeID       string `yaml:"node_id"`
	Name         string `yaml:"name"`
	DataType     string `yaml:"data_type"`
	PollInterval string `yaml:"poll_interval"`
	Enabled      bool   `yaml:"enabled"`
	Unit         string `yaml:"unit,omitempty"`
}

// ServersFile represents the top-level servers configuration file.
type ServersFile struct {
	Version string         `yaml:"version"`
	Servers []ServerConfig `yaml:"servers"`
}

// LoadServers loads server configurations from a YAML file.
func LoadServers(path string, defaultInterval time.Duration) ([]*domain.Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read servers file: %w", err)
	}
	return ParseServers(data, defaultInterval)
}

// ParseServers parses the servers file content, preserving server and tag
// order, and validates the result.
func ParseServers(data []byte, defaultInterval time.Duration) ([]*domain.Server, error) {
	var file ServersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse servers file: %w", err)
	}

	seenIDs := make(map[string]int)
	servers := make([]*domain.Server, 0, len(file.Servers))

	for idx, sc := range file.Servers {
		if prevIdx, exists := seenIDs[sc.ID]; exists {
			return nil, fmt.Errorf("duplicate server ID %q at index %d (first seen at index %d)", sc.ID, idx, prevIdx)
		}
		seenIDs[sc.ID] = idx

		server, err := toServer(sc, defaultInterval)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", sc.ID, err)
		}
		if err := server.Validate(); err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}

	return servers, nil
}

// toServer converts the YAML representation into the domain model.
func toServer(sc ServerConfig, defaultInterval time.Duration) (*domain.Server, error) {
	server := &domain.Server{
		ID:       sc.ID,
		Name:     sc.Name,
		Endpoint: sc.Endpoint,
		Security: domain.SecurityPolicy(sc.Security),
		Username: sc.Username,
		Password: sc.Password,
		Enabled:  sc.Enabled,
		Tags:     make([]domain.Tag, 0, len(sc.Tags)),
	}

	for _, tc := range sc.Tags {
		interval := defaultInterval
		if tc.PollInterval != "" {
			parsed, err := time.ParseDuration(tc.PollInterval)
			if err != nil {
				return nil, fmt.Errorf("tag %q: invalid poll interval %q: %w", tc.NodeID, tc.PollInterval, err)
			}
			interval = parsed
		}

		server.Tags = append(server.Tags, domain.Tag{
			NodeID:       tc.NodeID,
			Name:         tc.Name,
			DataType:     domain.DataType(tc.DataType),
			PollInterval: interval,
			Enabled:      tc.Enabled,
			Unit:         tc.Unit,
		})
	}

	return server, nil
}
