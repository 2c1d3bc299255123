// Package roomkey 根据参与者推导房间名
// 同一对用户无论谁发起，得到的房间名都相同
package roomkey

import "strings"

const (
	// Global 全局广播房间
	Global = "global"

	directPrefix = "dm:"
	userPrefix   = "user:"
)

// escaper 对用户 ID 中的分隔符转义，保证不同的用户对不会拼出同一个房间名
var escaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Direct 返回两个用户之间的私聊房间名: dm:<较小ID>:<较大ID>
// 先按原始 ID 排序再转义
// 两个参数相同时返回 dm:x:x
func Direct(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return directPrefix + escaper.Replace(a) + ":" + escaper.Replace(b)
}

// For 根据发送者和接收者推导消息所属房间，接收者为空时为全局房间
func For(sender, receiver string) string {
	if receiver == "" {
		return Global
	}
	return Direct(sender, receiver)
}

// User 返回用户的个人房间名，用户的每条连接都会加入该房间
func User(userID string) string {
	return userPrefix + userID
}

// IsDirect 判断是否为私聊房间
func IsDirect(room string) bool {
	return strings.HasPrefix(room, directPrefix)
}

// Members 解析私聊房间的两个参与者
func Members(room string) (string, string, bool) {
	if !IsDirect(room) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(room, directPrefix), ":")
	if len(parts) != 2 {
		return "", "", false
	}
	a, errA := unescape(parts[0])
	b, errB := unescape(parts[1])
	if !errA || !errB {
		return "", "", false
	}
	return a, b, true
}

func unescape(s string) (string, bool) {
	if !strings.Contains(s, "%") {
		return s, true
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			sb.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", false
		}
		switch s[i+1 : i+3] {
		case "25":
			sb.WriteByte('%')
		case "3A":
			sb.WriteByte(':')
		default:
			return "", false
		}
		i += 2
	}
	return sb.String(), true
}
