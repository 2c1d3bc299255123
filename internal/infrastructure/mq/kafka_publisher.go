package mq

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	myconfig "chat_gateway/internal/config"
	"chat_gateway/internal/gateway"
	"chat_gateway/pkg/errorx"
)

// messageWriter kafka.Writer 的最小子集
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 实现 gateway.Publisher，房间投递经 Kafka 扇出到所有节点
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher 构造函数
func NewKafkaPublisher(conf myconfig.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{writer: newWriter(conf)}
}

func (p *KafkaPublisher) Publish(ctx context.Context, room, event string, payload any) error {
	return p.PublishExcept(ctx, room, event, payload, "")
}

func (p *KafkaPublisher) PublishExcept(ctx context.Context, room, event string, payload any, exceptUserID string) error {
	d, err := gateway.NewDelivery(room, event, payload, exceptUserID)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeTransportError, "encode delivery failed")
	}
	value, err := json.Marshal(d)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeTransportError, "encode delivery failed")
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(room), Value: value}); err != nil {
		return errorx.Wrapf(err, errorx.CodeTransportError, "kafka write room=%s event=%s", room, event)
	}
	return nil
}

// Close 刷新并关闭 Writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ gateway.Publisher = (*KafkaPublisher)(nil)
