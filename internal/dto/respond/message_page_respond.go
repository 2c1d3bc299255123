package respond

// Pagination 分页信息
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// MessagePageRespond 历史消息分页响应，消息按时间从旧到新排列
type MessagePageRespond struct {
	Messages   []MessageRespond `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// NewPagination 计算总页数 ceil(total/limit)
func NewPagination(page, limit int, total int64) Pagination {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
