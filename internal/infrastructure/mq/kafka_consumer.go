package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	myconfig "chat_gateway/internal/config"
	"chat_gateway/internal/gateway"
)

// Deliverer 接收投递的一方，通常是本节点的 gateway.Hub
type Deliverer interface {
	Deliver(ctx context.Context, d gateway.Delivery) error
}

// messageReader kafka.Reader 的最小子集
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer 消费投递 Topic 并交给本地 Hub
type KafkaConsumer struct {
	reader  messageReader
	target  Deliverer
	backoff time.Duration
}

// NewKafkaConsumer 每个节点使用独立的消费组
func NewKafkaConsumer(conf myconfig.KafkaConfig, target Deliverer) *KafkaConsumer {
	groupID := conf.DeliveryTopic + "-" + uuid.NewString()
	return &KafkaConsumer{
		reader:  newReader(conf, groupID),
		target:  target,
		backoff: time.Second,
	}
}

// Run 循环消费直到 ctx 取消、Reader 关闭或 Hub 停止
func (c *KafkaConsumer) Run(ctx context.Context) {
	zap.L().Info("Kafka consumer started")
	defer zap.L().Info("Kafka consumer stopped")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			zap.L().Error("kafka read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}
		if err := c.handle(ctx, msg); errors.Is(err, gateway.ErrHubClosed) {
			return
		}
	}
}

// handle 解码一条投递，格式错误的消息记录后跳过
func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var d gateway.Delivery
	if err := json.Unmarshal(msg.Value, &d); err != nil || d.Room == "" || d.Event == "" {
		zap.L().Warn("skip malformed delivery",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return nil
	}
	if err := c.target.Deliver(ctx, d); err != nil {
		zap.L().Warn("deliver failed", zap.String("room", d.Room), zap.String("event", d.Event), zap.Error(err))
		return err
	}
	return nil
}

// Close 关闭 Reader，Run 随之退出
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
