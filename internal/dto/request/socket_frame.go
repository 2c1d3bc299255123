package request

import "encoding/json"

// SocketFrame 客户端发来的 WebSocket 文本帧
// 格式: {"event": "message:send", "data": {...}}
type SocketFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
