package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册 WebSocket 入口
// 请求示例: ws://host:port/ws?token=<jwt>
func (rt *Router) RegisterWebSocketRoutes(r gin.IRouter) {
	r.GET("/ws", rt.handlers.Ws.Connect)
}
