package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/research-assistant/service"
)

type StreamHandler struct {
	ws *service.WebSocketService
}

func NewStreamHandler(ws *service.WebSocketService) *StreamHandler {
	return &StreamHandler{ws: ws}
}

func (h *StreamHandler) HandleStream(c *gin.Context) {
	h.ws.HandleStream(c.Writer, c.Request)
}
