package constants

import "time"

const (
	CHANNEL_SIZE  = 100 // 通道大小
	REDIS_TIMEOUT = 1   // redis timeout (分钟)

	DEFAULT_PAGE_LIMIT = 20 // 历史消息默认每页条数
	MAX_PAGE_LIMIT     = 50 // 历史消息每页最大条数

	TEMP_ID_PREFIX = "temp-" // 客户端乐观消息 ID 前缀

	ANALYTICS_DAY_LAYOUT = "2006-01-02" // 统计日期格式（UTC）
)

// WebSocket 连接参数默认值
const (
	WS_WRITE_WAIT       = 10 * time.Second
	WS_PONG_WAIT        = 60 * time.Second
	WS_MAX_MESSAGE_SIZE = 64 * 1024
)

// 客户端 -> 服务端事件
const (
	EVENT_TYPING_START = "typing:start"
	EVENT_TYPING_STOP  = "typing:stop"
	EVENT_MESSAGE_SEND = "message:send"
	EVENT_MESSAGE_READ = "message:read"
)

// 服务端 -> 客户端事件
const (
	EVENT_MESSAGE_NEW      = "message:new"
	EVENT_PRESENCE_UPDATE  = "presence:update"
	EVENT_PRESENCE_LIST    = "presence:list"
	EVENT_ANALYTICS_UPDATE = "analytics:update"
	EVENT_ERROR            = "error"
)

// 用户角色，取自 JWT 中的 role 字段
const (
	ROLE_ADMIN = "admin"
)
