// Package model 定义数据库实体模型
package model

import (
	"time"

	"github.com/samber/lo"
)

// Message 消息模型，对应 message 表
// 除已读集合外，消息写入后不可修改
type Message struct {
	ID uint `gorm:"primarykey"`

	// Uuid 对外暴露的消息 ID（雪花算法，字符串形式）
	Uuid string `gorm:"column:uuid;uniqueIndex;type:varchar(32);not null;comment:消息雪花ID"`

	// SenderId 发送者
	SenderId string `gorm:"column:sender_id;index;type:varchar(64);not null;comment:发送者id"`

	// ReceiverId 接收者，为空表示全局消息
	ReceiverId *string `gorm:"column:receiver_id;index;type:varchar(64);comment:接收者id"`

	// RoomId 由发送者和接收者推导出的房间名，如 dm:a1:b2 或 global
	// 两个 64 字符的 ID 全部转义后最长 3+192+1+192 个字符
	RoomId string `gorm:"column:room_id;index:idx_room_created,priority:1;type:varchar(400);not null;comment:房间"`

	// Text 去掉首尾空白后的文本，可以为空（此时 Image 必须存在）
	Text string `gorm:"column:text;type:TEXT;comment:消息内容"`

	// Image 图片引用（URL），网关只存储引用不负责上传
	Image *string `gorm:"column:image;type:varchar(1024);comment:图片url"`

	CreatedAt time.Time `gorm:"column:created_at;index:idx_room_created,priority:2"`

	// Readers 已读用户，按加入顺序排列
	Readers []MessageReader `gorm:"foreignKey:MessageUuid;references:Uuid"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}

// ReadBy 返回按加入顺序排列的已读用户 ID
func (m *Message) ReadBy() []string {
	return lo.Map(m.Readers, func(r MessageReader, _ int) string {
		return r.ReaderId
	})
}

// Receiver 返回接收者 ID，全局消息返回空串
func (m *Message) Receiver() string {
	return lo.FromPtr(m.ReceiverId)
}

// MessageReader 消息已读记录，(message_uuid, reader_id) 唯一
type MessageReader struct {
	ID          uint      `gorm:"primarykey"`
	MessageUuid string    `gorm:"column:message_uuid;uniqueIndex:idx_message_reader,priority:1;type:varchar(32);not null"`
	ReaderId    string    `gorm:"column:reader_id;uniqueIndex:idx_message_reader,priority:2;type:varchar(64);not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// TableName 指定表名
func (MessageReader) TableName() string {
	return "message_reader"
}
