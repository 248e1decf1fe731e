package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/services/notification"
)

type NotifyHandler struct {
	notifier *notification.Notifier
}

func NewNotifyHandler(notifier *notification.Notifier) *NotifyHandler {
	return &NotifyHandler{notifier: notifier}
}

// NotifyResponse reports the outcome of every channel
type NotifyResponse struct {
	Status  string                `json:"status" example:"success"`
	Results []notification.Result `json:"results"`
}

// Notify godoc
// @Summary Send a notification
// @Description Deliver a message on every requested channel. Channels succeed or fail independently.
// @Tags notify
// @Accept json
// @Produce json
// @Param notification body notification.Notification true "Notification"
// @Success 200 {object} NotifyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} NotifyResponse
// @Router /notify [post]
func (h *NotifyHandler) Notify(c *gin.Context) {
	var req notification.Notification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	report := h.notifier.Notify(c.Request.Context(), req)

	resp := NotifyResponse{Status: "success", Results: report.Results}
	switch {
	case !report.Delivered():
		resp.Status = "failed"
		c.JSON(http.StatusBadGateway, resp)
		return
	case len(report.Failed()) > 0:
		resp.Status = "partial"
	}
	c.JSON(http.StatusOK, resp)
}
