// Package api exposes the read-only status surface of the gateway: the
// lifecycle state per server and the latest sampled values.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/savushkin-dev/scada-gateway/internal/domain"
	"github.com/savushkin-dev/scada-gateway/internal/registry"
	"github.com/savushkin-dev/scada-gateway/internal/service"
)

// StatusProvider is the view of the gateway the handlers need.
// Implemented by service.Gateway.
type StatusProvider interface {
	Status() []service.ManagerStatus
	Running() bool
}

// Handler serves the status endpoints.
type Handler struct {
	gateway  StatusProvider
	registry *registry.Registry
	logger   zerolog.Logger
	version  string
	started  time.Time
}

// NewHandler creates the status handler.
func NewHandler(gateway StatusProvider, reg *registry.Registry, version string, logger zerolog.Logger) *Handler {
	return &Handler{
		gateway:  gateway,
		registry: reg,
		logger:   logger.With().Str("component", "api").Logger(),
		version:  version,
		started:  time.Now(),
	}
}

// Register attaches the handlers to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.StatusHandler)
	mux.HandleFunc("/api/values", h.ValuesHandler)
}

// statusResponse is the payload of GET /api/status.
type statusResponse struct {
	Status       string                  `json:"status"`
	Version      string                  `json:"version"`
	Time         time.Time               `json:"time"`
	Uptime       string                  `json:"uptime"`
	ValuesStored int                     `json:"values_stored"`
	Servers      []service.ManagerStatus `json:"servers"`
}

// StatusHandler returns the gateway status and the per-server pipelines.
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "idle"
	if h.gateway.Running() {
		status = "running"
	}

	resp := statusResponse{
		Status:       status,
		Version:      h.version,
		Time:         time.Now().UTC(),
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		ValuesStored: h.registry.Len(),
		Servers:      h.gateway.Status(),
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ValuesHandler returns latest values. Without parameters it returns every
// recorded value; ?server= narrows to one server, ?server=&tag= to one tag.
func (h *Handler) ValuesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	serverID := r.URL.Query().Get("server")
	tagID := r.URL.Query().Get("tag")

	switch {
	case serverID != "" && tagID != "":
		tv, err := h.registry.Latest(serverID, tagID)
		if errors.Is(err, domain.ErrValueNotFound) {
			http.Error(w, "No value recorded for tag", http.StatusNotFound)
			return
		}
		h.writeJSON(w, http.StatusOK, tv)
	case serverID != "":
		h.writeJSON(w, http.StatusOK, h.registry.ServerValues(serverID))
	case tagID != "":
		http.Error(w, "tag parameter requires server", http.StatusBadRequest)
	default:
		h.writeJSON(w, http.StatusOK, h.registry.All())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
