package request

// SetActiveUsersRequest 手动覆盖当天在线人数（管理员）
// POST /analytics/active {"count": 3}
type SetActiveUsersRequest struct {
	Count *int `json:"count" binding:"required"`
}
