package request

// SendMessageRequest message:send 事件负载
// To 为空表示发送到全局房间
type SendMessageRequest struct {
	To           string  `json:"to" binding:"max=64"`
	Content      string  `json:"content" binding:"max=10000"`
	Image        *string `json:"image" binding:"omitempty,max=1024"`
	ClientTempId string  `json:"clientTempId" binding:"max=128"`
}
