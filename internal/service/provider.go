// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"chat_gateway/internal/config"
	"chat_gateway/internal/dao/mysql/repository"
	myredis "chat_gateway/internal/dao/redis"
	"chat_gateway/internal/service/analytics"
	"chat_gateway/internal/service/message"
)

// Services 聚合所有 Service 实例
type Services struct {
	Message   MessageService
	Analytics AnalyticsService
}

// NewServices 创建并注入所有 Service 实例
// cache 可为 nil（不启用分页缓存）
func NewServices(repos *repository.Repositories, cache myredis.AsyncCacheService, conf config.GatewayConfig) *Services {
	analyticsSvc := analytics.NewAnalyticsService(repos.Analytics, conf.AnalyticsWorkers, conf.AnalyticsBuffer)
	messageSvc := message.NewMessageService(repos.Message, cache, analyticsSvc).WithTransaction(repos.MessageTx)

	return &Services{
		Message:   messageSvc,
		Analytics: analyticsSvc,
	}
}

// Close 释放后台任务
func (s *Services) Close() {
	s.Analytics.Close()
}
