package handler

import (
	"chat_gateway/internal/dto/request"
	"chat_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 实时统计
type AnalyticsHandler struct {
	svc service.AnalyticsService
}

func NewAnalyticsHandler(svc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// GetAnalytics 按日期区间查询统计（管理员）
// GET /analytics?startDate=2024-05-01&endDate=2024-05-31
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	var req request.GetAnalyticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	rows, err := h.svc.Range(c.Request.Context(), req.StartDate, req.EndDate)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, rows)
}

// GetToday 当天统计
// GET /analytics/today
func (h *AnalyticsHandler) GetToday(c *gin.Context) {
	today, err := h.svc.Today(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, today)
}

// IncrementMessages 外部生产者上报一条消息
// POST /analytics/message
func (h *AnalyticsHandler) IncrementMessages(c *gin.Context) {
	if err := h.svc.IncrementMessages(c.Request.Context()); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// SetActiveUsers 覆盖当天在线人数（管理员）
// POST /analytics/active {"count": 3}
func (h *AnalyticsHandler) SetActiveUsers(c *gin.Context) {
	var req request.SetActiveUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.SetActiveUsers(c.Request.Context(), *req.Count); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
