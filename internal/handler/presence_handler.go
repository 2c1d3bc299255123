package handler

import (
	"chat_gateway/internal/dto/respond"

	"github.com/gin-gonic/gin"
)

// PresenceReader 在线状态快照
type PresenceReader interface {
	OnlineUserIDs() []string
}

// PresenceHandler 在线状态查询
type PresenceHandler struct {
	presence PresenceReader
}

func NewPresenceHandler(presence PresenceReader) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// GetPresence GET /presence
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	users := h.presence.OnlineUserIDs()
	HandleSuccess(c, respond.PresenceRespond{Online: len(users), Users: users})
}
