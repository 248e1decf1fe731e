package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/services"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	container *services.ServiceContainer
	startedAt time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(container *services.ServiceContainer) *SystemHandler {
	return &SystemHandler{
		container: container,
		startedAt: time.Now(),
	}
}

// @Summary Get system stats
// @Description Get runtime statistics, worker pool counters and agent activity
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	sc := h.container
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"worker_id":      sc.Config.WorkerID,
			"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
			"memory_mb":      m.Alloc / 1024 / 1024,
			"cpu_cores":      runtime.NumCPU(),
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
		},
		"pools": sc.PoolStats(),
		"agents": gin.H{
			"ingest":     sc.Ingest.Stats(),
			"bottleneck": sc.Bottleneck.Stats(),
			"anomaly":    sc.Anomaly.Stats(),
			"summary":    sc.Summary.Stats(),
			"dispatch":   sc.Dispatch.Stats(),
		},
		"fabric_connected":  sc.Fabric.IsConnected(),
		"websocket_clients": sc.Hub.ClientCount(),
		"timestamp":         time.Now().Unix(),
	})
}
