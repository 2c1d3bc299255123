package respond

// PresenceUpdateRespond presence:update 广播负载
type PresenceUpdateRespond struct {
	Online int `json:"online"`
}

// PresenceListRespond presence:list 广播负载
type PresenceListRespond struct {
	Users []string `json:"users"`
}

// PresenceRespond GET /presence 响应
type PresenceRespond struct {
	Online int      `json:"online"`
	Users  []string `json:"users"`
}
