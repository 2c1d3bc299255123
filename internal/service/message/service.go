package message

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"chat_gateway/internal/dao/mysql/repository"
	myredis "chat_gateway/internal/dao/redis"
	"chat_gateway/internal/dto/respond"
	"chat_gateway/internal/model"
	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/errorx"
	"chat_gateway/pkg/util/roomkey"
	"chat_gateway/pkg/util/snowflake"
)

// 对外错误消息
const (
	MsgContentRequired   = "Message content or image is required"
	MsgNotFound          = "Message not found"
	MsgSenderRequired    = "Sender is required"
	MsgRoomRequired      = "Room is required"
	MsgMessageIdRequired = "messageId is required"
)

// Counter 消息计数，由统计服务实现
type Counter interface {
	IncrementMessages(ctx context.Context) error
}

// TxRunner 在事务中执行消息读写，repository.Repositories.MessageTx 即为一种实现
type TxRunner func(ctx context.Context, fn func(repo repository.MessageRepository) error) error

// messageService 消息存储：持久化、分页查询和已读标记
type messageService struct {
	repo    repository.MessageRepository
	inTx    TxRunner
	cache   myredis.AsyncCacheService // 可为 nil，此时不缓存分页
	counter Counter                   // 可为 nil

	newID func() string
	now   func() time.Time
}

// NewMessageService 构造函数
func NewMessageService(repo repository.MessageRepository, cache myredis.AsyncCacheService, counter Counter) *messageService {
	s := &messageService{
		repo:    repo,
		cache:   cache,
		counter: counter,
		newID:   snowflake.GenerateIDString,
		now:     time.Now,
	}
	s.inTx = func(ctx context.Context, fn func(repo repository.MessageRepository) error) error {
		return fn(s.repo)
	}
	return s
}

// WithTransaction 让已读标记的查询和写入在同一事务中执行
func (s *messageService) WithTransaction(run TxRunner) *messageService {
	s.inTx = run
	return s
}

// Append 保存一条消息
// 文本去掉首尾空白后与图片不能同时为空；计数失败只记日志，不影响消息保存
func (s *messageService) Append(ctx context.Context, senderId, receiverId, text string, image *string) (*model.Message, error) {
	if senderId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, MsgSenderRequired)
	}
	text = strings.TrimSpace(text)
	if image != nil {
		trimmed := strings.TrimSpace(*image)
		image = lo.Ternary(trimmed == "", nil, &trimmed)
	}
	if text == "" && image == nil {
		return nil, errorx.New(errorx.CodeInvalidParam, MsgContentRequired)
	}

	msg := &model.Message{
		Uuid:       s.newID(),
		SenderId:   senderId,
		ReceiverId: lo.EmptyableToPtr(receiverId),
		RoomId:     roomkey.For(senderId, receiverId),
		Text:       text,
		Image:      image,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		zap.L().Error("create message failed", zap.String("room", msg.RoomId), zap.Error(err))
		return nil, err
	}

	if s.counter != nil {
		if err := s.counter.IncrementMessages(ctx); err != nil {
			zap.L().Warn("increment message counter failed", zap.String("message", msg.Uuid), zap.Error(err))
		}
	}
	s.invalidateRoom(ctx, msg.RoomId)
	return msg, nil
}

// Page 分页查询房间历史消息，返回结果按时间从旧到新
// limit 缺省为 20，范围 [1,50]；page 最小为 1
func (s *messageService) Page(ctx context.Context, roomId string, page, limit int) (*respond.MessagePageRespond, error) {
	if roomId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, MsgRoomRequired)
	}
	page, limit = NormalizePage(page, limit)

	cacheKey := pageCacheKey(roomId, page, limit)
	if cached, ok := s.loadPage(ctx, cacheKey); ok {
		return cached, nil
	}
	// 版本号必须在查库之前读取
	version, versionOK := s.roomVersion(ctx, roomId)

	total, err := s.repo.CountByRoom(ctx, roomId)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.PageByRoom(ctx, roomId, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	lo.Reverse(messages)

	rsp := &respond.MessagePageRespond{
		Messages:   respond.NewMessageRespondList(messages),
		Pagination: respond.NewPagination(page, limit, total),
	}
	if versionOK {
		s.storePage(roomId, version, cacheKey, rsp)
	}
	return rsp, nil
}

// MarkRead 把用户加入消息的已读集合，重复调用结果不变
func (s *messageService) MarkRead(ctx context.Context, messageId, readerId string) (*model.Message, error) {
	if messageId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, MsgMessageIdRequired)
	}
	var (
		msg   *model.Message
		added bool
	)
	err := s.inTx(ctx, func(repo repository.MessageRepository) error {
		var err error
		msg, err = repo.FindByUuid(ctx, messageId)
		if err != nil {
			if errorx.IsNotFound(err) {
				return errorx.Wrap(err, errorx.CodeNotFound, MsgNotFound)
			}
			return err
		}
		if lo.Contains(msg.ReadBy(), readerId) {
			return nil
		}
		if err := repo.AddReader(ctx, messageId, readerId); err != nil {
			return err
		}
		msg.Readers = append(msg.Readers, model.MessageReader{MessageUuid: messageId, ReaderId: readerId})
		added = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if added {
		s.invalidateRoom(ctx, msg.RoomId)
	}
	return msg, nil
}

// MarkPageRead 把一页历史消息标记为已被 readerId 阅读
// 整页都已读时不写库，也不清理分页缓存
func (s *messageService) MarkPageRead(ctx context.Context, roomId string, messages []respond.MessageRespond, readerId string) error {
	unread := lo.FilterMap(messages, func(m respond.MessageRespond, _ int) (string, bool) {
		return m.Id, !lo.Contains(m.ReadBy, readerId)
	})
	if len(unread) == 0 {
		return nil
	}
	if err := s.repo.AddReaders(ctx, unread, readerId); err != nil {
		return err
	}
	s.invalidateRoom(ctx, roomId)
	return nil
}

// NormalizePage 修正分页参数
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = constants.DEFAULT_PAGE_LIMIT
	case limit < 1:
		limit = 1
	case limit > constants.MAX_PAGE_LIMIT:
		limit = constants.MAX_PAGE_LIMIT
	}
	return page, limit
}

// ==================== 分页缓存 ====================

const (
	pageCachePrefix   = "room_page:"
	roomVersionPrefix = "room_version:"
)

var pageCacheTTL = time.Duration(constants.REDIS_TIMEOUT) * time.Minute

func pageCacheKey(roomId string, page, limit int) string {
	return fmt.Sprintf("%s%s:%d:%d", pageCachePrefix, roomId, page, limit)
}

func (s *messageService) loadPage(ctx context.Context, key string) (*respond.MessagePageRespond, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		zap.L().Error("redis get key error", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if raw == "" {
		return nil, false
	}
	var rsp respond.MessagePageRespond
	if err := json.Unmarshal([]byte(raw), &rsp); err != nil {
		zap.L().Error("json unmarshal cache error", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &rsp, true
}

// roomVersion 读取房间缓存版本，每次写入房间都会换一个新版本
func (s *messageService) roomVersion(ctx context.Context, roomId string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	version, err := s.cache.Get(ctx, roomVersionPrefix+roomId)
	if err != nil {
		zap.L().Error("redis get key error", zap.String("room", roomId), zap.Error(err))
		return "", false
	}
	return version, true
}

// storePage 异步回填分页缓存
// 写入后房间版本已变化说明期间有新写入，删掉刚写的旧页
func (s *messageService) storePage(roomId, version, key string, rsp *respond.MessagePageRespond) {
	data, err := json.Marshal(rsp)
	if err != nil {
		zap.L().Error("json marshal error", zap.Error(err))
		return
	}
	s.cache.SubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cache.Set(ctx, key, string(data), pageCacheTTL); err != nil {
			zap.L().Error("redis set key error", zap.String("key", key), zap.Error(err))
			return
		}
		if current, ok := s.roomVersion(ctx, roomId); ok && current == version {
			return
		}
		if err := s.cache.Delete(ctx, key); err != nil {
			zap.L().Error("redis delete stale page error", zap.String("key", key), zap.Error(err))
		}
	})
}

// invalidateRoom 更换房间版本并清理房间的所有分页缓存，失败只记日志
func (s *messageService) invalidateRoom(ctx context.Context, roomId string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, roomVersionPrefix+roomId, uuid.NewString(), pageCacheTTL); err != nil {
		zap.L().Warn("bump room cache version failed", zap.String("room", roomId), zap.Error(err))
	}
	pattern := pageCachePrefix + myredis.EscapePattern(roomId) + ":*"
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		zap.L().Warn("invalidate room page cache failed", zap.String("room", roomId), zap.Error(err))
	}
}
