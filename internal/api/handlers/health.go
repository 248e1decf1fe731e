package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/config"
	"drishti-worker-go/internal/services/messaging"
)

type HealthHandler struct {
	cfg    *config.Config
	fabric messaging.Fabric
}

func NewHealthHandler(cfg *config.Config, fabric messaging.Fabric) *HealthHandler {
	return &HealthHandler{cfg: cfg, fabric: fabric}
}

type HealthResponse struct {
	Status          string `json:"status" example:"healthy"`
	WorkerID        string `json:"worker_id" example:"worker-1"`
	FabricConnected bool   `json:"fabric_connected"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"worker-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Environment  string   `json:"environment" example:"development"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the worker is healthy and connected to the message fabric
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	connected := h.fabric != nil && h.fabric.IsConnected()

	resp := HealthResponse{
		Status:          "healthy",
		WorkerID:        h.cfg.WorkerID,
		FabricConnected: connected,
	}
	if !connected {
		resp.Status = "degraded"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID:    h.cfg.WorkerID,
		Status:      "running",
		Version:     h.cfg.Version,
		Environment: h.cfg.Environment,
		Capabilities: []string{
			"video_ingest",
			"bottleneck_detection",
			"anomaly_detection",
			"summaries",
			"field_dispatch",
			"notifications",
		},
	})
}
