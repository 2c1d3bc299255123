package respond

// SocketFrame 服务端推送给客户端的 WebSocket 文本帧
type SocketFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ErrorRespond error 事件负载，只发送给触发错误的连接
type ErrorRespond struct {
	Message string `json:"message"`
}
