package repository

import (
	"context"
	"time"

	"chat_gateway/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建每日统计 Repository
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) IncrementMessages(ctx context.Context, day string, delta int64) error {
	return r.upsert(ctx, model.DailyAnalytics{Day: day, TotalMessages: delta}, map[string]interface{}{
		"total_messages": gorm.Expr("total_messages + ?", delta),
	})
}

func (r *analyticsRepository) SetActiveUsers(ctx context.Context, day string, count int64) error {
	return r.upsert(ctx, model.DailyAnalytics{Day: day, ActiveUsers: count}, map[string]interface{}{
		"active_users": count,
	})
}

// upsert 当天的行不存在则插入 row，否则只更新 updates 中的列
func (r *analyticsRepository) upsert(ctx context.Context, row model.DailyAnalytics, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(&row).Error
	return wrapDBErrorf(err, "更新统计 day=%s", row.Day)
}

func (r *analyticsRepository) FindByDay(ctx context.Context, day string) (*model.DailyAnalytics, error) {
	var row model.DailyAnalytics
	if err := r.db.WithContext(ctx).Where("day = ?", day).First(&row).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询统计 day=%s", day)
	}
	return &row, nil
}

func (r *analyticsRepository) FindRange(ctx context.Context, from, to string) ([]model.DailyAnalytics, error) {
	query := r.db.WithContext(ctx)
	if from != "" {
		query = query.Where("day >= ?", from)
	}
	if to != "" {
		query = query.Where("day <= ?", to)
	}
	var rows []model.DailyAnalytics
	if err := query.Order("day ASC").Find(&rows).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询统计区间 %s~%s", from, to)
	}
	return rows, nil
}
