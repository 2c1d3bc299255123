package respond

import (
	"chat_gateway/internal/model"

	"github.com/samber/lo"
)

// AnalyticsRespond 单日统计，同时用作 analytics:update 广播负载
type AnalyticsRespond struct {
	Date          string `json:"date"`
	TotalUsers    int64  `json:"totalUsers"`
	TotalMessages int64  `json:"totalMessages"`
	ActiveUsers   int64  `json:"activeUsers"`
}

// NewAnalyticsRespond 由统计模型构造响应
func NewAnalyticsRespond(row *model.DailyAnalytics) AnalyticsRespond {
	return AnalyticsRespond{
		Date:          row.Day,
		TotalUsers:    row.TotalUsers,
		TotalMessages: row.TotalMessages,
		ActiveUsers:   row.ActiveUsers,
	}
}

// NewAnalyticsRespondList 批量转换
func NewAnalyticsRespondList(rows []model.DailyAnalytics) []AnalyticsRespond {
	return lo.Map(rows, func(row model.DailyAnalytics, _ int) AnalyticsRespond {
		return NewAnalyticsRespond(&row)
	})
}
