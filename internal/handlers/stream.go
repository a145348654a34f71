// internal/handlers/stream.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/creatorclaim/backend/internal/stream"
	"github.com/creatorclaim/backend/internal/utils"
)

type StreamHandler struct {
	hub *stream.Hub
}

func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	return &StreamHandler{
		hub: hub,
	}
}

// GET /stream (websocket upgrade)
func (h *StreamHandler) Subscribe(c *gin.Context) {
	h.hub.HandleConnection(c.Writer, c.Request)
}

// GET /stream/stats
func (h *StreamHandler) GetStats(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"connected_clients": h.hub.ClientCount(),
	})
}
