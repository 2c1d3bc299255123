package gateway

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// connOptions 单个连接的读写参数
type connOptions struct {
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

// UserConn 一条已鉴权的 WebSocket 连接
// 读协程负责分发事件，写协程负责把发送缓冲写到网络并定时 ping
// send 只由 Hub 关闭
type UserConn struct {
	ConnID string
	UserID string
	Email  string

	ws    *websocket.Conn
	send  chan []byte
	rooms []string // 仅 Hub 协程访问

	hub  *Hub
	opts connOptions
}

func newUserConn(ws *websocket.Conn, hub *Hub, connID, userID, email string, bufferSize int, opts connOptions) *UserConn {
	return &UserConn{
		ConnID: connID,
		UserID: userID,
		Email:  email,
		ws:     ws,
		send:   make(chan []byte, bufferSize),
		hub:    hub,
		opts:   opts,
	}
}

// readPump 读取客户端帧并交给 dispatcher，连接出错或关闭时注销
func (c *UserConn) readPump(d *Dispatcher) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(c.opts.maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				zap.L().Warn("ws read error", zap.String("conn_id", c.ConnID), zap.Error(err))
			}
			return
		}
		d.Dispatch(c, raw)
	}
}

// writePump 发送缓冲被关闭时发出 close 帧后退出
func (c *UserConn) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				zap.L().Warn("ws write error", zap.String("conn_id", c.ConnID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
