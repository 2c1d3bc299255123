// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数，通过构造函数注入 Service 依赖
package handler

import (
	"chat_gateway/internal/gateway"
	"chat_gateway/internal/service"
)

// Handlers 聚合所有 Handler 实例，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Ws        *WsHandler
	Message   *MessageHandler
	Presence  *PresenceHandler
	Analytics *AnalyticsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, gw *gateway.Server) *Handlers {
	return &Handlers{
		Ws:        NewWsHandler(gw),
		Message:   NewMessageHandler(svc.Message),
		Presence:  NewPresenceHandler(gw.Hub().Presence()),
		Analytics: NewAnalyticsHandler(svc.Analytics),
	}
}
