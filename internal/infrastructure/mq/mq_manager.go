// Package mq 实现 kafka 模式下的跨节点房间投递
// 每个网关节点把投递写入同一个 Topic，再各自消费全部消息交给本地 Hub
package mq

import (
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	myconfig "chat_gateway/internal/config"
)

// newWriter 创建投递 Writer，按房间做 Hash 分区保证同一房间有序
func newWriter(conf myconfig.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(conf.HostPort),
		Topic:                  conf.DeliveryTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           conf.Timeout * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
}

// newReader 创建投递 Reader
// groupID 每个节点唯一，所有节点都能收到全部投递
func newReader(conf myconfig.KafkaConfig, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{conf.HostPort},
		Topic:          conf.DeliveryTopic,
		CommitInterval: conf.Timeout * time.Second,
		GroupID:        groupID,
		StartOffset:    kafka.LastOffset,
	})
}

// EnsureTopic 创建投递 Topic，已存在时不报错
func EnsureTopic(conf myconfig.KafkaConfig) error {
	conn, err := kafka.Dial("tcp", conf.HostPort)
	if err != nil {
		return err
	}
	defer conn.Close()

	// 创建 Topic 需要连到 Controller 节点
	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	partitions := conf.Partition
	if partitions <= 0 {
		partitions = 1
	}
	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             conf.DeliveryTopic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		return err
	}
	zap.L().Info("Kafka topic ready", zap.String("topic", conf.DeliveryTopic), zap.Int("partitions", partitions))
	return nil
}
