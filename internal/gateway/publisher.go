// Package gateway 实现 WebSocket 网关
// 负责握手鉴权、房间管理、在线状态和事件分发
package gateway

import (
	"context"
	"encoding/json"

	"chat_gateway/internal/dto/respond"
	"chat_gateway/internal/model"
	"chat_gateway/pkg/util/jwt"
)

// Publisher 房间广播接口
// channel 模式由 Hub 直接实现；kafka 模式由 mq.KafkaPublisher 经集群扇出后再交给各节点的 Hub
type Publisher interface {
	// Publish 向房间内所有连接广播事件
	Publish(ctx context.Context, room, event string, payload any) error
	// PublishExcept 向房间广播，跳过 exceptUserID 的所有连接
	PublishExcept(ctx context.Context, room, event string, payload any, exceptUserID string) error
}

// MessageStore 网关依赖的消息存储能力
type MessageStore interface {
	Append(ctx context.Context, senderId, receiverId, text string, image *string) (*model.Message, error)
	MarkRead(ctx context.Context, messageId, readerId string) (*model.Message, error)
}

// ActiveUsersCounter 在线人数统计（尽力而为）
type ActiveUsersCounter interface {
	SetActiveUsers(ctx context.Context, count int) error
}

// TokenParser 握手 Token 校验
type TokenParser interface {
	ParseToken(token string) (*jwt.Claims, error)
}

// Delivery 一次房间投递，也是 Kafka 中传输的消息体
type Delivery struct {
	Room         string          `json:"room"`
	Event        string          `json:"event"`
	Payload      json.RawMessage `json:"payload"`
	ExceptUserID string          `json:"exceptUserId,omitempty"`
}

// NewDelivery 序列化负载并构造投递
func NewDelivery(room, event string, payload any, exceptUserID string) (Delivery, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{Room: room, Event: event, Payload: data, ExceptUserID: exceptUserID}, nil
}

// Frame 编码为发给客户端的文本帧 {"event","data"}
func (d Delivery) Frame() ([]byte, error) {
	return encodeFrame(d.Event, d.Payload)
}

func encodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(respond.SocketFrame{Event: event, Data: data})
}
