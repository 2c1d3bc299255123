// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层和网关调用
package service

import (
	"context"

	"chat_gateway/internal/dto/respond"
	"chat_gateway/internal/model"
	"chat_gateway/internal/service/analytics"
)

// MessageService 消息业务接口
// 处理消息持久化、历史分页和已读标记
type MessageService interface {
	// Append 保存一条消息，receiverId 为空表示发往全局房间
	Append(ctx context.Context, senderId, receiverId, text string, image *string) (*model.Message, error)
	// Page 分页获取房间历史消息（从旧到新）
	Page(ctx context.Context, roomId string, page, limit int) (*respond.MessagePageRespond, error)
	// MarkRead 标记单条消息已读
	MarkRead(ctx context.Context, messageId, readerId string) (*model.Message, error)
	// MarkPageRead 标记一页消息已读
	MarkPageRead(ctx context.Context, roomId string, messages []respond.MessageRespond, readerId string) error
}

// AnalyticsService 统计业务接口
type AnalyticsService interface {
	// IncrementMessages 当天消息数 +1（异步）
	IncrementMessages(ctx context.Context) error
	// SetActiveUsers 覆盖当天在线人数（异步）
	SetActiveUsers(ctx context.Context, count int) error
	// Today 当天统计
	Today(ctx context.Context) (*respond.AnalyticsRespond, error)
	// Range 日期区间统计
	Range(ctx context.Context, startDate, endDate string) ([]respond.AnalyticsRespond, error)
	// SetNotifier 注入 analytics:update 的广播出口
	SetNotifier(n analytics.Notifier)
	// Close 等待队列中的任务完成
	Close()
}
