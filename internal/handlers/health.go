package handlers

import (
	"net/http"
	"time"
)

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Timestamp int64  `json:"ts"`
}

// Health reports liveness of the service and its knowledge store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Store:     "ok",
		Timestamp: time.Now().UnixMilli(),
	}

	status := http.StatusOK
	if err := h.vectors.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		status = http.StatusServiceUnavailable
	}

	h.JSON(w, status, resp)
}
