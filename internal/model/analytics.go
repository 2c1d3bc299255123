package model

import "time"

// DailyAnalytics 按 UTC 日期聚合的计数，每天一行
type DailyAnalytics struct {
	ID            uint      `gorm:"primarykey"`
	Day           string    `gorm:"column:day;uniqueIndex;type:char(10);not null;comment:日期 2006-01-02"`
	TotalUsers    int64     `gorm:"column:total_users;not null;default:0"`
	TotalMessages int64     `gorm:"column:total_messages;not null;default:0"`
	ActiveUsers   int64     `gorm:"column:active_users;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName 指定表名
func (DailyAnalytics) TableName() string {
	return "daily_analytics"
}
