package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/services/summary"
)

type SummaryHandler struct {
	agent *summary.Agent
}

func NewSummaryHandler(agent *summary.Agent) *SummaryHandler {
	return &SummaryHandler{agent: agent}
}

// ListSummaries godoc
// @Summary List summaries
// @Description Get every stored summary in storage order
// @Tags summaries
// @Produce json
// @Success 200 {array} models.SummaryRecord
// @Failure 500 {object} ErrorResponse
// @Router /summaries [get]
func (h *SummaryHandler) ListSummaries(c *gin.Context) {
	records, err := h.agent.List(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to list summaries")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
