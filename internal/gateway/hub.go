package gateway

import (
	"context"

	"go.uber.org/zap"

	"chat_gateway/internal/dto/respond"
	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/errorx"
	"chat_gateway/pkg/util/roomkey"
)

// ErrHubClosed Hub 已停止
var ErrHubClosed = errorx.New(errorx.CodeTransportError, "gateway hub closed")

type directFrame struct {
	conn *UserConn
	data []byte
}

// Hub 网关主循环
// 房间成员、在线状态和所有投递都只在 Run 协程中处理：
// 上下线后的重算与 presence 广播在同一轮循环内完成，不会被其他连接的上下线打断
type Hub struct {
	register   chan *UserConn
	unregister chan *UserConn
	deliver    chan Delivery
	direct     chan directFrame

	conns    map[*UserConn]struct{}
	rooms    map[string]map[*UserConn]struct{}
	presence *PresenceTracker
	counter  ActiveUsersCounter // 可为 nil

	done chan struct{}
}

// NewHub 创建 Hub，需要调用 Run 启动
func NewHub(counter ActiveUsersCounter) *Hub {
	return &Hub{
		// register 不带缓冲：Register 返回时连接已经入房间
		register:   make(chan *UserConn),
		unregister: make(chan *UserConn, constants.CHANNEL_SIZE),
		deliver:    make(chan Delivery, constants.CHANNEL_SIZE),
		direct:     make(chan directFrame, constants.CHANNEL_SIZE),
		conns:      make(map[*UserConn]struct{}),
		rooms:      make(map[string]map[*UserConn]struct{}),
		presence:   NewPresenceTracker(),
		counter:    counter,
		done:       make(chan struct{}),
	}
}

// Presence 在线状态（只读使用）
func (h *Hub) Presence() *PresenceTracker {
	return h.presence
}

// Done Hub 退出后关闭
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run 处理注册、注销和投递，直到 ctx 取消
// 退出时断开所有连接
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.conns {
			h.detach(c)
		}
		close(h.done)
		zap.L().Info("Gateway hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.join(c)
		case c := <-h.unregister:
			if _, ok := h.conns[c]; ok {
				h.leave(c)
			}
		case d := <-h.deliver:
			h.broadcast(d)
		case f := <-h.direct:
			if _, ok := h.conns[f.conn]; ok {
				h.fanout([]*UserConn{f.conn}, f.data)
			}
		}
	}
}

// Register 连接鉴权成功后加入 global 和 user:<id> 房间
func (h *Hub) Register(c *UserConn) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister 连接断开时调用，可重复调用
func (h *Hub) Unregister(c *UserConn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Deliver 把投递交给 Hub 主循环
// kafka 模式下由消费者调用，channel 模式下由 Publish 调用
func (h *Hub) Deliver(ctx context.Context, d Delivery) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.deliver <- d:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish 实现 Publisher
func (h *Hub) Publish(ctx context.Context, room, event string, payload any) error {
	return h.PublishExcept(ctx, room, event, payload, "")
}

// PublishExcept 实现 Publisher
func (h *Hub) PublishExcept(ctx context.Context, room, event string, payload any, exceptUserID string) error {
	d, err := NewDelivery(room, event, payload, exceptUserID)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeTransportError, "encode delivery failed")
	}
	return h.Deliver(ctx, d)
}

// Emit 只发给指定连接，用于 error 事件
func (h *Hub) Emit(ctx context.Context, c *UserConn, event string, payload any) error {
	data, err := encodeFrame(event, payload)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeTransportError, "encode frame failed")
	}
	select {
	case h.direct <- directFrame{conn: c, data: data}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) join(c *UserConn) {
	h.conns[c] = struct{}{}
	for _, room := range []string{roomkey.Global, roomkey.User(c.UserID)} {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*UserConn]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
		c.rooms = append(c.rooms, room)
	}
	h.presence.OnConnect(c.ConnID, c.UserID)
	zap.L().Info("ws connection joined",
		zap.String("conn_id", c.ConnID),
		zap.String("user_id", c.UserID),
		zap.Int("online", h.presence.Count()))
	h.broadcastPresence()
}

func (h *Hub) leave(c *UserConn) {
	h.detach(c)
	h.presence.OnDisconnect(c.ConnID)
	zap.L().Info("ws connection left",
		zap.String("conn_id", c.ConnID),
		zap.String("user_id", c.UserID),
		zap.Int("online", h.presence.Count()))
	h.broadcastPresence()
}

// detach 退出所有房间并关闭发送通道，写协程随之结束
func (h *Hub) detach(c *UserConn) {
	for _, room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = nil
	delete(h.conns, c)
	close(c.send)
}

// broadcastPresence 向所有连接推送 presence:update 和 presence:list，再尽力更新统计
func (h *Hub) broadcastPresence() {
	users := h.presence.OnlineUserIDs()
	update, err := encodeFrame(constants.EVENT_PRESENCE_UPDATE, respond.PresenceUpdateRespond{Online: len(users)})
	if err != nil {
		zap.L().Error("encode presence update failed", zap.Error(err))
		return
	}
	list, err := encodeFrame(constants.EVENT_PRESENCE_LIST, respond.PresenceListRespond{Users: users})
	if err != nil {
		zap.L().Error("encode presence list failed", zap.Error(err))
		return
	}

	targets := make([]*UserConn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.fanout(targets, update, list)

	if h.counter != nil {
		if err := h.counter.SetActiveUsers(context.Background(), len(users)); err != nil {
			zap.L().Warn("update active users failed", zap.Int("count", len(users)), zap.Error(err))
		}
	}
}

func (h *Hub) broadcast(d Delivery) {
	members := h.rooms[d.Room]
	if len(members) == 0 {
		return
	}
	frame, err := d.Frame()
	if err != nil {
		zap.L().Error("encode delivery failed", zap.String("room", d.Room), zap.String("event", d.Event), zap.Error(err))
		return
	}
	targets := make([]*UserConn, 0, len(members))
	for c := range members {
		if d.ExceptUserID != "" && c.UserID == d.ExceptUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.fanout(targets, frame)
}

// fanout 非阻塞写入发送缓冲，缓冲已满的慢连接会被断开
func (h *Hub) fanout(targets []*UserConn, frames ...[]byte) {
	var slow []*UserConn
	for _, c := range targets {
		for _, frame := range frames {
			if !trySend(c, frame) {
				slow = append(slow, c)
				break
			}
		}
	}
	for _, c := range slow {
		if _, ok := h.conns[c]; !ok {
			continue
		}
		zap.L().Warn("ws send buffer full, dropping connection",
			zap.String("conn_id", c.ConnID),
			zap.String("user_id", c.UserID))
		h.leave(c)
	}
}

func trySend(c *UserConn, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}
