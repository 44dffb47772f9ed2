package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/savushkin-dev/scada-gateway/internal/api"
	"github.com/savushkin-dev/scada-gateway/internal/domain"
	"github.com/savushkin-dev/scada-gateway/internal/registry"
	"github.com/savushkin-dev/scada-gateway/internal/service"
)

type stubGateway struct {
	running  bool
	statuses []service.ManagerStatus
}

func (s *stubGateway) Status() []service.ManagerStatus { return s.statuses }
func (s *stubGateway) Running() bool                   { return s.running }

func testMux(gw *stubGateway, reg *registry.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewHandler(gw, reg, "test", zerolog.Nop()).Register(mux)
	return mux
}

func seedValue(reg *registry.Registry, serverID, nodeID string, v domain.Value) {
	tag := &domain.Tag{NodeID: nodeID, Name: nodeID, DataType: domain.DataTypeFloat64}
	reg.Set(domain.NewTagValue(serverID, tag, v, domain.QualityGood, time.Now()))
}

func TestStatusHandler(t *testing.T) {
	gw := &stubGateway{
		running: true,
		statuses: []service.ManagerStatus{
			{ServerID: "srv-1", ServerName: "Line 1", State: "RUNNING", EnabledTags: 2},
		},
	}
	reg := registry.New()
	seedValue(reg, "srv-1", "ns=2;s=T", domain.FloatValue(21.5))

	rec := httptest.NewRecorder()
	testMux(gw, reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}

	var resp struct {
		Status       string                  `json:"status"`
		ValuesStored int                     `json:"values_stored"`
		Servers      []service.ManagerStatus `json:"servers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "running" {
		t.Errorf("status = %q, want running", resp.Status)
	}
	if resp.ValuesStored != 1 {
		t.Errorf("values_stored = %d, want 1", resp.ValuesStored)
	}
	if len(resp.Servers) != 1 || resp.Servers[0].State != "RUNNING" {
		t.Errorf("servers = %+v, want one RUNNING pipeline", resp.Servers)
	}
}

func TestStatusHandler_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	testMux(&stubGateway{}, registry.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want 405", rec.Code)
	}
}

func TestValuesHandler_SingleTag(t *testing.T) {
	reg := registry.New()
	seedValue(reg, "srv-1", "ns=2;s=T", domain.FloatValue(21.5))
	mux := testMux(&stubGateway{}, reg)

	// Node IDs carry "=" and ";", so they must be query-encoded.
	query := url.Values{"server": {"srv-1"}, "tag": {"ns=2;s=T"}}.Encode()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/values?"+query, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	var tv domain.TagValue
	if err := json.Unmarshal(rec.Body.Bytes(), &tv); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tv.TagID != "ns=2;s=T" || tv.Quality != domain.QualityGood {
		t.Errorf("got %+v, want good value for ns=2;s=T", tv)
	}
}

func TestValuesHandler_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	testMux(&stubGateway{}, registry.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/values?server=srv-1&tag=missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", rec.Code)
	}
}

func TestValuesHandler_ByServer(t *testing.T) {
	reg := registry.New()
	seedValue(reg, "srv-1", "ns=2;s=A", domain.IntValue(1))
	seedValue(reg, "srv-1", "ns=2;s=B", domain.IntValue(2))
	seedValue(reg, "srv-2", "ns=2;s=C", domain.IntValue(3))

	rec := httptest.NewRecorder()
	testMux(&stubGateway{}, reg).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/values?server=srv-1", nil))

	var values []domain.TagValue
	if err := json.Unmarshal(rec.Body.Bytes(), &values); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("got %d values for srv-1, want 2", len(values))
	}
}

func TestValuesHandler_TagWithoutServer(t *testing.T) {
	rec := httptest.NewRecorder()
	testMux(&stubGateway{}, registry.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/values?"+url.Values{"tag": {"ns=2;s=T"}}.Encode(), nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", rec.Code)
	}
}
