package respond

import (
	"time"

	"chat_gateway/internal/model"

	"github.com/samber/lo"
)

// MessageRespond 消息的对外表示
// message:new 广播和历史消息接口共用此结构
type MessageRespond struct {
	Id           string    `json:"_id"`
	SenderId     string    `json:"senderId"`
	ReceiverId   *string   `json:"receiverId"`
	RoomId       string    `json:"roomId"`
	Text         string    `json:"text"`
	Image        *string   `json:"image"`
	ReadBy       []string  `json:"readBy"`
	CreatedAt    time.Time `json:"createdAt"`
	ClientTempId string    `json:"clientTempId,omitempty"` // 仅在实时广播中回显，不落库
}

// NewMessageRespond 由消息模型构造响应
func NewMessageRespond(m *model.Message) MessageRespond {
	readBy := m.ReadBy()
	if readBy == nil {
		readBy = []string{}
	}
	return MessageRespond{
		Id:         m.Uuid,
		SenderId:   m.SenderId,
		ReceiverId: m.ReceiverId,
		RoomId:     m.RoomId,
		Text:       m.Text,
		Image:      m.Image,
		ReadBy:     readBy,
		CreatedAt:  m.CreatedAt,
	}
}

// NewMessageRespondList 批量转换，保持顺序
func NewMessageRespondList(messages []model.Message) []MessageRespond {
	return lo.Map(messages, func(m model.Message, _ int) MessageRespond {
		return NewMessageRespond(&m)
	})
}

// ReadReceiptRespond message:read 广播负载
type ReadReceiptRespond struct {
	MessageId string `json:"messageId"`
	UserId    string `json:"userId"`
}

// TypingRespond typing:start / typing:stop 广播负载
type TypingRespond struct {
	From string `json:"from"`
	Room string `json:"room"`
}
