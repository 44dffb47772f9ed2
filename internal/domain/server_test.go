package domain_test

import (
	"testing"
	"time"

	"github.com/savushkin-dev/scada-gateway/internal/domain"
)

func TestServer_Validate(t *testing.T) {
	tests := []struct {
		name    string
		server  domain.Server
		wantErr bool
	}{
		{
			name: "valid server",
			server: domain.Server{
				ID:       "plc-001",
				Name:     "Line 1 PLC",
				Endpoint: "opc.tcp://10.0.0.5:4840",
				Enabled:  true,
				Tags: []domain.Tag{
					{NodeID: "ns=2;s=Temperature", Name: "Temperature", DataType: domain.DataTypeFloat64, PollInterval: time.Second, Enabled: true},
				},
			},
			wantErr: false,
		},
		{
			name: "missing server ID",
			server: domain.Server{
				Name:     "Line 1 PLC",
				Endpoint: "opc.tcp://10.0.0.5:4840",
			},
			wantErr: true,
		},
		{
			name: "missing endpoint",
			server: domain.Server{
				ID:   "plc-001",
				Name: "Line 1 PLC",
			},
			wantErr: true,
		},
		{
			name: "enabled tag without interval",
			server: domain.Server{
				ID:       "plc-001",
				Name:     "Line 1 PLC",
				Endpoint: "opc.tcp://10.0.0.5:4840",
				Tags: []domain.Tag{
					{NodeID: "ns=2;s=Pressure", Name: "Pressure", Enabled: true},
				},
			},
			wantErr: true,
		},
		{
			name: "disabled tag without interval is fine",
			server: domain.Server{
				ID:       "plc-001",
				Name:     "Line 1 PLC",
				Endpoint: "opc.tcp://10.0.0.5:4840",
				Tags: []domain.Tag{
					{NodeID: "ns=2;s=Pressure", Name: "Pressure", Enabled: false},
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.server.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Server.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServer_EnabledTags(t *testing.T) {
	server := domain.Server{
		ID:       "plc-001",
		Name:     "Line 1 PLC",
		Endpoint: "opc.tcp://10.0.0.5:4840",
		Tags: []domain.Tag{
			{NodeID: "a", Name: "A", PollInterval: time.Second, Enabled: true},
			{NodeID: "b", Name: "B", PollInterval: time.Second, Enabled: false},
			{NodeID: "c", Name: "C", PollInterval: time.Second, Enabled: true},
		},
	}

	tags := server.EnabledTags()
	if len(tags) != 2 {
		t.Fatalf("EnabledTags() returned %d tags, want 2", len(tags))
	}
	if tags[0].NodeID != "a" || tags[1].NodeID != "c" {
		t.Errorf("EnabledTags() = [%s %s], want [a c]", tags[0].NodeID, tags[1].NodeID)
	}
}
