package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"chat_gateway/internal/dto/request"
	"chat_gateway/internal/dto/respond"
	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/errorx"
	"chat_gateway/pkg/util/roomkey"
)

const eventTimeout = 10 * time.Second

var errMalformedFrame = errorx.New(errorx.CodeInvalidParam, "Malformed frame")

// Dispatcher 处理客户端事件
// 所有错误只回给触发事件的连接，连接保持打开
type Dispatcher struct {
	hub       *Hub
	store     MessageStore
	publisher Publisher
	validate  *validator.Validate
}

// NewDispatcher publisher 为 nil 时直接使用 hub 在本进程内广播
func NewDispatcher(hub *Hub, store MessageStore, publisher Publisher) *Dispatcher {
	if publisher == nil {
		publisher = hub
	}
	v := validator.New()
	v.SetTagName("binding")
	return &Dispatcher{
		hub:       hub,
		store:     store,
		publisher: publisher,
		validate:  v,
	}
}

// Dispatch 解析一帧并按事件名分发
func (d *Dispatcher) Dispatch(c *UserConn, raw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	var frame request.SocketFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
		d.fail(ctx, c, "", errMalformedFrame, "")
		return
	}

	switch frame.Event {
	case constants.EVENT_TYPING_START, constants.EVENT_TYPING_STOP:
		d.handleTyping(ctx, c, frame)
	case constants.EVENT_MESSAGE_SEND:
		d.handleSend(ctx, c, frame)
	case constants.EVENT_MESSAGE_READ:
		d.handleRead(ctx, c, frame)
	default:
		d.fail(ctx, c, frame.Event, errorx.Newf(errorx.CodeInvalidParam, "Unknown event: %s", frame.Event), "")
	}
}

func (d *Dispatcher) handleTyping(ctx context.Context, c *UserConn, frame request.SocketFrame) {
	var req request.TypingRequest
	if err := d.decode(frame.Data, &req); err != nil {
		d.fail(ctx, c, frame.Event, err, "")
		return
	}
	room := roomkey.Global
	if req.To != "" {
		room = roomkey.User(req.To)
	}
	payload := respond.TypingRespond{From: c.UserID, Room: room}
	if err := d.publisher.PublishExcept(ctx, room, frame.Event, payload, c.UserID); err != nil {
		zap.L().Warn("publish typing failed", zap.String("room", room), zap.Error(err))
	}
}

func (d *Dispatcher) handleSend(ctx context.Context, c *UserConn, frame request.SocketFrame) {
	var req request.SendMessageRequest
	if err := d.decode(frame.Data, &req); err != nil {
		d.fail(ctx, c, frame.Event, err, "")
		return
	}

	msg, err := d.store.Append(ctx, c.UserID, req.To, req.Content, req.Image)
	if err != nil {
		d.fail(ctx, c, frame.Event, err, "Failed to send message")
		return
	}

	payload := respond.NewMessageRespond(msg)
	payload.ClientTempId = req.ClientTempId

	rooms := []string{roomkey.Global}
	if req.To != "" {
		rooms = []string{roomkey.User(req.To)}
		if req.To != c.UserID {
			rooms = append(rooms, roomkey.User(c.UserID))
		}
	}
	for _, room := range rooms {
		if err := d.publisher.Publish(ctx, room, constants.EVENT_MESSAGE_NEW, payload); err != nil {
			zap.L().Error("publish message failed",
				zap.String("room", room),
				zap.String("message", msg.Uuid),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) handleRead(ctx context.Context, c *UserConn, frame request.SocketFrame) {
	var req request.ReadMessageRequest
	if err := d.decode(frame.Data, &req); err != nil {
		d.fail(ctx, c, frame.Event, err, "")
		return
	}

	msg, err := d.store.MarkRead(ctx, req.MessageId, c.UserID)
	if err != nil {
		d.fail(ctx, c, frame.Event, err, "Failed to mark read")
		return
	}

	room := roomkey.Global
	if receiver := msg.Receiver(); receiver != "" {
		room = roomkey.User(receiver)
	}
	payload := respond.ReadReceiptRespond{MessageId: msg.Uuid, UserId: c.UserID}
	if err := d.publisher.Publish(ctx, room, constants.EVENT_MESSAGE_READ, payload); err != nil {
		zap.L().Error("publish read receipt failed", zap.String("room", room), zap.Error(err))
	}
}

// decode 缺省或 null 的 data 视为空对象
func (d *Dispatcher) decode(data json.RawMessage, out any) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return errMalformedFrame
		}
	}
	if err := d.validate.Struct(out); err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidParam, errorx.ErrInvalidParam.Msg)
	}
	return nil
}

// fail 向触发事件的连接发送 error 事件
// 内部错误不外露，使用 fallback 文案
func (d *Dispatcher) fail(ctx context.Context, c *UserConn, event string, err error, fallback string) {
	if fallback == "" {
		fallback = errorx.ErrServerBusy.Msg
	}
	msg := fallback
	if errorx.IsClientError(err) {
		msg = errorx.GetMsg(err, fallback)
		zap.L().Debug("ws event rejected",
			zap.String("conn_id", c.ConnID),
			zap.String("event", event),
			zap.Error(err))
	} else {
		zap.L().Error("ws event failed",
			zap.String("conn_id", c.ConnID),
			zap.String("user_id", c.UserID),
			zap.String("event", event),
			zap.Error(err))
	}
	if err := d.hub.Emit(ctx, c, constants.EVENT_ERROR, respond.ErrorRespond{Message: msg}); err != nil {
		zap.L().Warn("emit error event failed", zap.String("conn_id", c.ConnID), zap.Error(err))
	}
}
