package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/savushkin-dev/scada-gateway/internal/domain"
)

func TestValue_Kinds(t *testing.T) {
	tests := []struct {
		name string
		v    domain.Value
		kind domain.ValueKind
		any  interface{}
	}{
		{"none", domain.NoValue(), domain.KindNone, nil},
		{"bool", domain.BoolValue(true), domain.KindBool, true},
		{"int", domain.IntValue(42), domain.KindInt, int64(42)},
		{"float", domain.FloatValue(21.5), domain.KindFloat, 21.5},
		{"string", domain.StringValue("run"), domain.KindString, "run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.v.Kind(), tt.kind)
			}
			if got := tt.v.Any(); got != tt.any {
				t.Errorf("Any() = %v (%T), want %v (%T)", got, got, tt.any, tt.any)
			}
		})
	}
}

func TestValue_NoValueIsNotZero(t *testing.T) {
	// The explicit absent value must be distinguishable from 0 and "".
	if v := domain.NoValue(); !v.IsNone() {
		t.Fatal("NoValue().IsNone() = false")
	}
	if v := domain.IntValue(0); v.IsNone() {
		t.Error("IntValue(0).IsNone() = true, want false")
	}
	if v := domain.StringValue(""); v.IsNone() {
		t.Error(`StringValue("").IsNone() = true, want false`)
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		v    domain.Value
		want string
	}{
		{domain.NoValue(), "null"},
		{domain.BoolValue(false), "false"},
		{domain.IntValue(4294967295), "4294967295"},
		{domain.StringValue("ok"), `"ok"`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.v)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", tt.v, err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.v, data, tt.want)
		}
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		data string
		kind domain.ValueKind
		any  interface{}
	}{
		{"null", domain.KindNone, nil},
		{"true", domain.KindBool, true},
		{"4294967295", domain.KindInt, int64(4294967295)},
		{"21.5", domain.KindFloat, 21.5},
		{`"ok"`, domain.KindString, "ok"},
	}

	for _, tt := range tests {
		var v domain.Value
		if err := json.Unmarshal([]byte(tt.data), &v); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.data, err)
		}
		if v.Kind() != tt.kind || v.Any() != tt.any {
			t.Errorf("Unmarshal(%s) = %v kind %v, want %v kind %v", tt.data, v.Any(), v.Kind(), tt.any, tt.kind)
		}
	}
}

func TestNewTagValue(t *testing.T) {
	tag := &domain.Tag{
		NodeID:   "ns=2;s=Temperature",
		Name:     "Temperature",
		DataType: domain.DataTypeFloat64,
		Unit:     "°C",
	}
	ts := time.Now()

	tv := domain.NewTagValue("plc-001", tag, domain.FloatValue(21.5), domain.QualityGood, ts)

	if tv.ServerID != "plc-001" {
		t.Errorf("ServerID = %s, want plc-001", tv.ServerID)
	}
	if tv.TagID != tag.NodeID {
		t.Errorf("TagID = %s, want node ID %s", tv.TagID, tag.NodeID)
	}
	if tv.Quality != domain.QualityGood {
		t.Errorf("Quality = %s, want GOOD", tv.Quality)
	}
	if !tv.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", tv.Timestamp, ts)
	}
	if tv.Unit != "°C" {
		t.Errorf("Unit = %s, want °C", tv.Unit)
	}
}

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state domain.ConnectionState
		want  string
	}{
		{domain.StateUninitialized, "UNINITIALIZED"},
		{domain.StateConnecting, "CONNECTING"},
		{domain.StateConnected, "CONNECTED"},
		{domain.StateRunning, "RUNNING"},
		{domain.StateStopping, "STOPPING"},
		{domain.StateStopped, "STOPPED"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %s, want %s", tt.state, got, tt.want)
		}
	}
	if !domain.StateStopped.Terminal() {
		t.Error("StateStopped.Terminal() = false, want true")
	}
	if domain.StateRunning.Terminal() {
		t.Error("StateRunning.Terminal() = true, want false")
	}
}
