// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"chat_gateway/internal/handler"
	"chat_gateway/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 持有 Handler 聚合对象
type Router struct {
	handlers *handler.Handlers
}

func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// /healthz 和 /ws 为公开路由（/ws 在握手时自行鉴权），其余都需要 JWT
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", handler.Healthz)
	rt.RegisterWebSocketRoutes(r)

	authed := r.Group("/")
	authed.Use(middleware.JWTAuth())
	{
		rt.RegisterMessageRoutes(authed)
		rt.RegisterPresenceRoutes(authed)
		rt.RegisterAnalyticsRoutes(authed)
	}
}
