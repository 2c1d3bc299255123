package request

// ReadMessageRequest message:read 事件负载
type ReadMessageRequest struct {
	MessageId string `json:"messageId" binding:"required,max=32"`
}
