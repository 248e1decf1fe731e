package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/services/websocket"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type FeedHandler struct {
	hub *websocket.Hub
}

func NewFeedHandler(hub *websocket.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// Feed godoc
// @Summary Live feed
// @Description Upgrade to a websocket streaming new summaries and dispatch instructions
// @Tags feed
// @Success 101
// @Router /ws [get]
func (h *FeedHandler) Feed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c).Err(err).Msg("WebSocket upgrade failed")
		return
	}
	websocket.NewClient(h.hub, conn).Serve()
}
