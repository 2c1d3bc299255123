package request

// GetAnalyticsRequest 统计区间查询参数，日期格式 2006-01-02
// GET /analytics?startDate=2024-05-01&endDate=2024-05-31
type GetAnalyticsRequest struct {
	StartDate string `form:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"endDate" binding:"omitempty,datetime=2006-01-02"`
}
