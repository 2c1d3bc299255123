package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 注册历史消息路由（需要认证）
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	rg.GET("/messages/:roomId", rt.handlers.Message.GetRoomMessages) // 分页历史，顺带标记已读
}

// RegisterPresenceRoutes 注册在线状态路由（需要认证）
func (rt *Router) RegisterPresenceRoutes(rg *gin.RouterGroup) {
	rg.GET("/presence", rt.handlers.Presence.GetPresence)
}
