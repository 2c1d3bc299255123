// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
package repository

import (
	"context"

	"chat_gateway/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 创建消息
	Create(ctx context.Context, message *model.Message) error
	// FindByUuid 根据消息 ID 查找消息（含已读列表）
	FindByUuid(ctx context.Context, uuid string) (*model.Message, error)
	// AddReader 把用户加入消息的已读集合，重复加入不报错
	AddReader(ctx context.Context, uuid string, readerId string) error
	// AddReaders 批量把用户加入多条消息的已读集合
	AddReaders(ctx context.Context, uuids []string, readerId string) error
	// PageByRoom 按创建时间倒序分页查询房间消息
	PageByRoom(ctx context.Context, roomId string, offset, limit int) ([]model.Message, error)
	// CountByRoom 统计房间消息总数
	CountByRoom(ctx context.Context, roomId string) (int64, error)
}

// AnalyticsRepository 每日统计数据访问接口
// 所有写操作都是按天 upsert，当天的行不存在时自动创建
type AnalyticsRepository interface {
	IncrementMessages(ctx context.Context, day string, delta int64) error
	SetActiveUsers(ctx context.Context, day string, count int64) error
	// FindByDay 查询某天的统计，不存在时返回 CodeNotFound
	FindByDay(ctx context.Context, day string) (*model.DailyAnalytics, error)
	// FindRange 查询 [from, to] 闭区间内的统计，按日期升序，空字符串表示不限
	FindRange(ctx context.Context, from, to string) ([]model.DailyAnalytics, error)
}

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db        *gorm.DB
	Message   MessageRepository
	Analytics AnalyticsRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:        db,
		Message:   NewMessageRepository(db),
		Analytics: NewAnalyticsRepository(db),
	}
}

// Transaction 在数据库事务中执行函数，fn 返回错误时整体回滚
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// MessageTx 在事务中执行只涉及消息表的读写
func (r *Repositories) MessageTx(ctx context.Context, fn func(repo MessageRepository) error) error {
	return r.Transaction(ctx, func(tx *Repositories) error {
		return fn(tx.Message)
	})
}

// AutoMigrate 创建或更新表结构，不会删除已有字段或数据
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Message{},
		&model.MessageReader{},
		&model.DailyAnalytics{},
	)
}
