package handler

import (
	"chat_gateway/internal/dto/request"
	"chat_gateway/internal/service"
	"chat_gateway/pkg/errorx"
	"chat_gateway/pkg/util/roomkey"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageHandler 历史消息
type MessageHandler struct {
	svc service.MessageService
}

func NewMessageHandler(svc service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// GetRoomMessages 分页获取房间历史消息，并把这一页标记为已读
// GET /messages/:roomId?page=1&limit=20
// 私聊房间只有双方可以查看
func (h *MessageHandler) GetRoomMessages(c *gin.Context) {
	var req request.GetMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	roomId := c.Param("roomId")
	userId := c.GetString("user_id")

	if roomId != roomkey.Global {
		a, b, ok := roomkey.Members(roomId)
		if !ok {
			HandleError(c, errorx.Newf(errorx.CodeInvalidParam, "Invalid room id: %s", roomId))
			return
		}
		if userId != a && userId != b {
			HandleError(c, errorx.ErrForbidden)
			return
		}
	}

	page, err := h.svc.Page(c.Request.Context(), roomId, req.Page, req.Limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.svc.MarkPageRead(c.Request.Context(), roomId, page.Messages, userId); err != nil {
		zap.L().Warn("mark page read failed", zap.String("room", roomId), zap.String("user_id", userId), zap.Error(err))
	}
	HandleSuccess(c, page)
}
