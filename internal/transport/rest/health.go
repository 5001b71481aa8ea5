package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/frahmantamala/cost-tracker/internal/cost"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
	DurationMs int64          `json:"duration_ms"`
}

// StoreManager is the part of the collection manager the health check drives.
type StoreManager interface {
	State() cost.State
	Open(ctx context.Context) error
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	manager StoreManager
}

// NewHealthHandler checks the store through the collection manager. While the
// manager is uninitialized each check retries Open, so a store that comes back
// is loaded and the API serves it again.
func NewHealthHandler(manager StoreManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// healthCheckHandler reports the record store; any store failure answers 503.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := internal.WithTimeout(r.Context(), storeProbeTimeout)
	defer cancel()

	entry := h.probeStore(ctx)

	status := http.StatusOK
	if entry.Status != HealthHealthy {
		status = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, status, HealthResponse{
		Status:     entry.Status,
		CheckedAt:  entry.CheckedAt,
		Components: map[string]CheckEntry{"store": entry},
	})
}

const storeProbeTimeout = 2 * time.Second

func (h *HealthHandler) probeStore(ctx context.Context) CheckEntry {
	start := time.Now()
	entry := CheckEntry{Status: HealthHealthy}

	var err error
	if h.manager.State() != cost.StateReady {
		err = h.manager.Open(ctx)
	}
	if err == nil {
		err = h.manager.Ping(ctx)
	}
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}
	entry.Details = map[string]any{"manager_state": h.manager.State().String()}

	entry.CheckedAt = time.Now()
	entry.DurationMs = entry.CheckedAt.Sub(start).Milliseconds()
	return entry
}

func writeHealthJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
