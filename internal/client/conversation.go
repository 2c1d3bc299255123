// Package client 提供终端客户端使用的会话状态和 WebSocket 连接
package client

import (
	"strings"
	"time"

	"chat_gateway/internal/dto/respond"
	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/util/roomkey"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MessageView 客户端持有的消息
// Optimistic 为 true 表示本地乐观插入、尚未收到服务端确认
type MessageView struct {
	Id         string
	SenderId   string
	ReceiverId string
	RoomId     string
	Text       string
	Image      *string
	ReadBy     []string
	CreatedAt  time.Time
	Token      string // 关联令牌，与发给网关的 clientTempId 相同
	Optimistic bool
}

// ReconcileResult 一条确认消息的处理结果
type ReconcileResult int

const (
	Discarded       ReconcileResult = iota // 不属于当前会话
	Duplicate                              // 持久化 ID 已存在
	ReplacedByToken                        // 按关联令牌替换乐观消息
	ReplacedByMatch                        // 按发送者、接收者、文本替换乐观消息
	Appended
)

func (r ReconcileResult) String() string {
	switch r {
	case Discarded:
		return "discarded"
	case Duplicate:
		return "duplicate"
	case ReplacedByToken:
		return "replaced_by_token"
	case ReplacedByMatch:
		return "replaced_by_match"
	case Appended:
		return "appended"
	}
	return "unknown"
}

// Conversation 当前打开的私聊会话，每条逻辑消息只保留一条记录
// 非并发安全，Client 负责加锁
type Conversation struct {
	self     string
	peer     string
	messages []MessageView

	newToken func() string
	now      func() time.Time
}

// NewConversation self 为当前用户，peer 为会话对方
func NewConversation(self, peer string) *Conversation {
	return &Conversation{
		self:     self,
		peer:     peer,
		newToken: func() string { return constants.TEMP_ID_PREFIX + uuid.NewString() },
		now:      time.Now,
	}
}

func (c *Conversation) Self() string { return c.self }
func (c *Conversation) Peer() string { return c.peer }

// Room 会话对应的私聊房间
func (c *Conversation) Room() string {
	return roomkey.Direct(c.self, c.peer)
}

// AddOptimistic 在发送前插入一条乐观消息，返回值的 Token 需随 message:send 一起发出
func (c *Conversation) AddOptimistic(text string, image *string) MessageView {
	token := c.newToken()
	view := MessageView{
		Id:         token,
		SenderId:   c.self,
		ReceiverId: c.peer,
		RoomId:     c.Room(),
		Text:       strings.TrimSpace(text),
		Image:      image,
		ReadBy:     []string{},
		CreatedAt:  c.now(),
		Token:      token,
		Optimistic: true,
	}
	c.messages = append(c.messages, view)
	return view
}

// Reconcile 合并一条 message:new 广播
func (c *Conversation) Reconcile(msg respond.MessageRespond) ReconcileResult {
	view := confirmedView(msg)
	if !c.belongs(view) {
		return Discarded
	}
	if c.indexOf(func(m MessageView) bool { return m.Id == view.Id }) >= 0 {
		// 历史记录先到时，令牌对应的乐观消息已经多余
		if view.Token != "" && view.Token != view.Id {
			c.messages = lo.Reject(c.messages, func(m MessageView, _ int) bool { return m.Id == view.Token })
		}
		return Duplicate
	}

	if view.Token != "" {
		if i := c.indexOf(func(m MessageView) bool { return m.Id == view.Token }); i >= 0 {
			c.messages[i] = view
			return ReplacedByToken
		}
	}

	// 没有令牌（或令牌对不上）时按内容匹配第一条仍在等待确认的消息
	if i := c.indexOf(func(m MessageView) bool {
		return isTemp(m.Id) &&
			m.Text == view.Text &&
			m.SenderId == view.SenderId &&
			m.ReceiverId == view.ReceiverId
	}); i >= 0 {
		c.messages[i] = view
		return ReplacedByMatch
	}

	c.messages = append(c.messages, view)
	return Appended
}

// Load 用历史消息重建列表，仍在等待确认的乐观消息保留在末尾
// 历史中已有确认记录的乐观消息会被丢弃，每条历史消息最多抵掉一条
func (c *Conversation) Load(history []respond.MessageRespond) {
	loaded := make([]MessageView, 0, len(history))
	seen := make(map[string]struct{}, len(history))
	for _, msg := range history {
		view := confirmedView(msg)
		if !c.belongs(view) {
			continue
		}
		if _, ok := seen[view.Id]; ok {
			continue
		}
		seen[view.Id] = struct{}{}
		loaded = append(loaded, view)
	}
	used := make([]bool, len(loaded))
	pending := lo.Filter(c.Pending(), func(p MessageView, _ int) bool {
		for i, m := range loaded {
			if !used[i] && confirms(m, p) {
				used[i] = true
				return false
			}
		}
		return true
	})
	c.messages = append(loaded, pending...)
}

// confirms 判断历史消息 m 是否就是乐观消息 p 的确认记录
func confirms(m, p MessageView) bool {
	if m.Token != "" && m.Token == p.Token {
		return true
	}
	return m.SenderId == p.SenderId &&
		m.ReceiverId == p.ReceiverId &&
		m.Text == p.Text &&
		!m.CreatedAt.Before(p.CreatedAt)
}

// ApplyReadReceipt 把 userId 加入消息的已读列表，消息不在会话中时返回 false
func (c *Conversation) ApplyReadReceipt(messageId, userId string) bool {
	i := c.indexOf(func(m MessageView) bool { return m.Id == messageId })
	if i < 0 {
		return false
	}
	if !lo.Contains(c.messages[i].ReadBy, userId) {
		c.messages[i].ReadBy = append(c.messages[i].ReadBy, userId)
	}
	return true
}

// Messages 返回列表副本
func (c *Conversation) Messages() []MessageView {
	return append([]MessageView(nil), c.messages...)
}

// Pending 尚未确认的乐观消息，没有超时重发
func (c *Conversation) Pending() []MessageView {
	return lo.Filter(c.messages, func(m MessageView, _ int) bool { return m.Optimistic })
}

// belongs 只接受当前用户与对方之间的消息，两个方向都算
func (c *Conversation) belongs(m MessageView) bool {
	return (m.SenderId == c.self && m.ReceiverId == c.peer) ||
		(m.SenderId == c.peer && m.ReceiverId == c.self)
}

func (c *Conversation) indexOf(match func(MessageView) bool) int {
	_, i, ok := lo.FindIndexOf(c.messages, match)
	if !ok {
		return -1
	}
	return i
}

func isTemp(id string) bool {
	return strings.HasPrefix(id, constants.TEMP_ID_PREFIX)
}

func confirmedView(msg respond.MessageRespond) MessageView {
	readBy := msg.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return MessageView{
		Id:         msg.Id,
		SenderId:   msg.SenderId,
		ReceiverId: lo.FromPtr(msg.ReceiverId),
		RoomId:     msg.RoomId,
		Text:       msg.Text,
		Image:      msg.Image,
		ReadBy:     readBy,
		CreatedAt:  msg.CreatedAt,
		Token:      msg.ClientTempId,
	}
}
