package repository

import (
	"context"

	"chat_gateway/internal/model"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 创建消息
func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Omit("Readers").Create(message).Error; err != nil {
		return wrapDBError(err, "创建消息")
	}
	return nil
}

// FindByUuid 根据消息 ID 查找消息
func (r *messageRepository) FindByUuid(ctx context.Context, uuid string) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).
		Preload("Readers", preloadReaders).
		Where("uuid = ?", uuid).
		First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 uuid=%s", uuid)
	}
	return &message, nil
}

// AddReader 已读集合是集合语义，唯一索引冲突时忽略
func (r *messageRepository) AddReader(ctx context.Context, uuid string, readerId string) error {
	reader := model.MessageReader{MessageUuid: uuid, ReaderId: readerId}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&reader).Error; err != nil {
		return wrapDBErrorf(err, "标记已读 uuid=%s reader=%s", uuid, readerId)
	}
	return nil
}

// AddReaders 批量标记已读
func (r *messageRepository) AddReaders(ctx context.Context, uuids []string, readerId string) error {
	uuids = lo.Uniq(uuids)
	if len(uuids) == 0 {
		return nil
	}
	readers := lo.Map(uuids, func(uuid string, _ int) model.MessageReader {
		return model.MessageReader{MessageUuid: uuid, ReaderId: readerId}
	})
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&readers).Error; err != nil {
		return wrapDBErrorf(err, "批量标记已读 reader=%s", readerId)
	}
	return nil
}

// PageByRoom 按创建时间倒序分页，同一时间按主键倒序保证顺序稳定
func (r *messageRepository) PageByRoom(ctx context.Context, roomId string, offset, limit int) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.WithContext(ctx).
		Preload("Readers", preloadReaders).
		Where("room_id = ?", roomId).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间消息 room=%s", roomId)
	}
	return messages, nil
}

// CountByRoom 统计房间消息总数
func (r *messageRepository) CountByRoom(ctx context.Context, roomId string) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("room_id = ?", roomId).
		Count(&total).Error; err != nil {
		return 0, wrapDBErrorf(err, "统计房间消息 room=%s", roomId)
	}
	return total, nil
}
