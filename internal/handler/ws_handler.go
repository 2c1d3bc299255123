package handler

import (
	"chat_gateway/internal/gateway"

	"github.com/gin-gonic/gin"
)

// WsHandler WebSocket 握手
type WsHandler struct {
	server *gateway.Server
}

func NewWsHandler(server *gateway.Server) *WsHandler {
	return &WsHandler{server: server}
}

// Connect 升级为 WebSocket 连接
// GET /ws?token=xxx 或携带 Authorization: Bearer xxx
// Token 缺失或无效时在升级前返回 401，连接不会加入任何房间
func (h *WsHandler) Connect(c *gin.Context) {
	claims, err := h.server.Authenticate(c.Request)
	if err != nil {
		HandleError(c, err)
		return
	}
	_ = h.server.Upgrade(c.Writer, c.Request, claims)
}
