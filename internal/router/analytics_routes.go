package router

import (
	"chat_gateway/internal/infrastructure/middleware"
	"chat_gateway/pkg/constants"

	"github.com/gin-gonic/gin"
)

// RegisterAnalyticsRoutes 注册统计相关路由（需要认证）
// 查询和覆盖在线人数只允许管理员调用
func (rt *Router) RegisterAnalyticsRoutes(rg *gin.RouterGroup) {
	analyticsGroup := rg.Group("/analytics")
	{
		analyticsGroup.POST("/message", rt.handlers.Analytics.IncrementMessages) // 外部生产者上报消息

		adminGroup := analyticsGroup.Group("")
		adminGroup.Use(middleware.RequireRole(constants.ROLE_ADMIN))
		{
			adminGroup.GET("", rt.handlers.Analytics.GetAnalytics)            // 按日期区间查询
			adminGroup.GET("/today", rt.handlers.Analytics.GetToday)         // 当天统计
			adminGroup.POST("/active", rt.handlers.Analytics.SetActiveUsers) // 覆盖在线人数
		}
	}
}
