package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/savushkin-dev/scada-gateway/internal/adapter/config"
	"github.com/savushkin-dev/scada-gateway/internal/domain"
)

const serversYAML = `
version: "1"
servers:
  - id: plc-001
    name: Line 1 PLC
    endpoint: opc.tcp://10.0.0.5:4840
    security: None
    enabled: true
    tags:
      - node_id: "ns=2;s=Temperature"
        name: Temperature
        data_type: float64
        poll_interval: 500ms
        enabled: true
        unit: "°C"
      - node_id: "ns=2;s=Counter"
        name: Counter
        data_type: uint32
        enabled: false
  - id: plc-002
    name: Line 2 PLC
    endpoint: opc.tcp://10.0.0.6:4840
    enabled: false
    tags: []
`

func TestParseServers(t *testing.T) {
	servers, err := config.ParseServers([]byte(serversYAML), time.Second)
	if err != nil {
		t.Fatalf("ParseServers(): %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(servers))
	}

	s := servers[0]
	if s.ID != "plc-001" || !s.Enabled {
		t.Errorf("first server = %s enabled=%v, want plc-001 enabled", s.ID, s.Enabled)
	}
	if len(s.Tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(s.Tags))
	}
	if s.Tags[0].PollInterval != 500*time.Millisecond {
		t.Errorf("tag interval = %v, want 500ms", s.Tags[0].PollInterval)
	}
	// Unset interval falls back to the default.
	if s.Tags[1].PollInterval != time.Second {
		t.Errorf("default tag interval = %v, want 1s", s.Tags[1].PollInterval)
	}
	if s.Tags[1].Enabled {
		t.Error("disabled tag parsed as enabled")
	}
	if s.Tags[0].DataType != domain.DataTypeFloat64 {
		t.Errorf("data type = %s, want float64", s.Tags[0].DataType)
	}
}

func TestParseServers_DuplicateID(t *testing.T) {
	dup := `
servers:
  - id: plc-001
    name: A
    endpoint: opc.tcp://a:4840
  - id: plc-001
    name: B
    endpoint: opc.tcp://b:4840
`
	_, err := config.ParseServers([]byte(dup), time.Second)
	if err == nil || !strings.Contains(err.Error(), "duplicate server ID") {
		t.Fatalf("ParseServers() err = %v, want duplicate ID error", err)
	}
}

func TestParseServers_InvalidInterval(t *testing.T) {
	bad := `
servers:
  - id: plc-001
    name: A
    endpoint: opc.tcp://a:4840
    tags:
      - node_id: "ns=2;s=X"
        name: X
        poll_interval: soon
        enabled: true
`
	if _, err := config.ParseServers([]byte(bad), time.Second); err == nil {
		t.Fatal("ParseServers() accepted an unparseable poll interval")
	}
}

func TestParseServers_ValidationFailure(t *testing.T) {
	missing := `
servers:
  - id: plc-001
    name: A
`
	if _, err := config.ParseServers([]byte(missing), time.Second); err == nil {
		t.Fatal("ParseServers() accepted a server without endpoint")
	}
}
