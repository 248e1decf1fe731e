package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/dispatch"
	"drishti-worker-go/internal/services/storage"
)

type DispatchHandler struct {
	agent *dispatch.Agent
}

func NewDispatchHandler(agent *dispatch.Agent) *DispatchHandler {
	return &DispatchHandler{agent: agent}
}

// Dispatch godoc
// @Summary Dispatch a critical event
// @Description Map the event to an action, claim field units and issue the dispatch instruction. Safe to repeat for the same eventId.
// @Tags dispatch
// @Accept json
// @Produce json
// @Param event body models.CriticalEvent true "Critical event"
// @Success 200 {object} dispatch.Outcome
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} dispatch.Outcome
// @Failure 500 {object} ErrorResponse
// @Router /dispatch [post]
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var event models.CriticalEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logging.SetEvent(c, event.EventID)
	outcome, err := h.agent.Dispatch(c.Request.Context(), event)
	switch {
	case errors.Is(err, dispatch.ErrNoUnitsAvailable):
		c.JSON(http.StatusServiceUnavailable, outcome)
		return
	case err != nil:
		logging.Error(c).Err(err).Msg("Dispatch failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// GetInstruction godoc
// @Summary Get a dispatch instruction
// @Description Get the dispatch instruction stored for an event
// @Tags dispatch
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} models.DispatchInstruction
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /dispatch/{eventId} [get]
func (h *DispatchHandler) GetInstruction(c *gin.Context) {
	eventID := c.Param("eventId")

	in, err := h.agent.Instruction(c.Request.Context(), eventID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no dispatch instruction for event " + eventID})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, in)
}
