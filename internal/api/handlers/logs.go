package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/dispatch"
	"drishti-worker-go/internal/services/storage"
)

type LogsHandler struct {
	store    storage.Store
	dispatch *dispatch.Agent
}

func NewLogsHandler(store storage.Store, dispatchAgent *dispatch.Agent) *LogsHandler {
	return &LogsHandler{store: store, dispatch: dispatchAgent}
}

// LogsResponse is the response log of the pipeline
type LogsResponse struct {
	Detections  []models.DetectionEvent      `json:"detections"`
	Dispatches  []models.DispatchInstruction `json:"dispatches"`
	Rejections  []models.DispatchRejection   `json:"rejections"`
	Escalations []models.Escalation          `json:"escalations"`
}

// GetLogs godoc
// @Summary List pipeline logs
// @Description Get detection events, dispatch instructions, rejections and escalations in storage order
// @Tags logs
// @Produce json
// @Param camera_id query string false "Only detections from this camera"
// @Success 200 {object} LogsResponse
// @Failure 500 {object} ErrorResponse
// @Router /logs [get]
func (h *LogsHandler) GetLogs(c *gin.Context) {
	ctx := c.Request.Context()

	detections, err := storage.ListJSON[models.DetectionEvent](ctx, h.store, storage.PrefixDetections)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to list detections")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if cameraID := c.Query("camera_id"); cameraID != "" {
		filtered := detections[:0]
		for _, d := range detections {
			if d.CameraID == cameraID {
				filtered = append(filtered, d)
			}
		}
		detections = filtered
	}

	dispatches, err := h.dispatch.Instructions(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	rejections, err := h.dispatch.Rejections(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	escalations, err := h.dispatch.Escalations(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, LogsResponse{
		Detections:  detections,
		Dispatches:  dispatches,
		Rejections:  rejections,
		Escalations: escalations,
	})
}
