package gateway

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// PresenceTracker 在线状态：连接 ID -> 用户 ID
// 只有 Hub 协程写入；HTTP 等外部读取方通过读锁访问快照
// 同一用户的多个连接只算一个在线用户，全部断开后才下线
type PresenceTracker struct {
	mu     sync.RWMutex
	conns  map[string]string
	online []string // 每次变更后整体重算，按字典序排列
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{conns: make(map[string]string)}
}

// OnConnect 记录连接
func (p *PresenceTracker) OnConnect(connID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[connID] = userID
	p.recompute()
}

// OnDisconnect 移除连接，连接不存在时返回 false
func (p *PresenceTracker) OnDisconnect(connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.conns[connID]; !ok {
		return false
	}
	delete(p.conns, connID)
	p.recompute()
	return true
}

func (p *PresenceTracker) recompute() {
	users := lo.Uniq(lo.Values(p.conns))
	sort.Strings(users)
	p.online = users
}

// OnlineUserIDs 在线用户列表（去重、有序）
func (p *PresenceTracker) OnlineUserIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append(make([]string, 0, len(p.online)), p.online...)
}

// Count 在线用户数
func (p *PresenceTracker) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.online)
}

// Connections 当前连接数
func (p *PresenceTracker) Connections() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}
