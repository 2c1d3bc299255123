package request

// TypingRequest typing:start / typing:stop 事件负载
type TypingRequest struct {
	To string `json:"to" binding:"max=64"`
}
