package request

// GetMessagesRequest 历史消息分页参数
// GET /messages/:roomId?page=1&limit=20
// 缺省和越界值由 Service 层修正
type GetMessagesRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}
