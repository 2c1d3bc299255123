package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"chat_gateway/internal/config"
	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/errorx"
	"chat_gateway/pkg/util/jwt"
)

// Options 网关参数，零值字段使用默认值
type Options struct {
	SendBufferSize int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration
	AllowedOrigins []string // 为空表示不校验 Origin
}

// OptionsFromConfig 由配置构造网关参数，配置中的时间单位为秒
func OptionsFromConfig(gw config.GatewayConfig, main config.MainConfig) Options {
	return Options{
		SendBufferSize: gw.SendBufferSize,
		MaxMessageSize: gw.MaxMessageSize,
		PongWait:       gw.PongWait * time.Second,
		WriteWait:      gw.WriteWait * time.Second,
		AllowedOrigins: main.AllowedOrigins,
	}
}

func (o Options) withDefaults() Options {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = constants.CHANNEL_SIZE
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = constants.WS_MAX_MESSAGE_SIZE
	}
	if o.PongWait <= 0 {
		o.PongWait = constants.WS_PONG_WAIT
	}
	if o.WriteWait <= 0 {
		o.WriteWait = constants.WS_WRITE_WAIT
	}
	return o
}

// Server WebSocket 握手入口
// 先校验 Token，再升级连接并交给 Hub
type Server struct {
	hub        *Hub
	dispatcher *Dispatcher
	tokens     TokenParser
	upgrader   websocket.Upgrader
	opts       Options
}

// NewServer 构造函数
func NewServer(hub *Hub, dispatcher *Dispatcher, tokens TokenParser, opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{
		hub:        hub,
		dispatcher: dispatcher,
		tokens:     tokens,
		opts:       opts,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Hub 返回网关使用的 Hub
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 || lo.Contains(s.opts.AllowedOrigins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	// 非浏览器客户端不带 Origin
	return origin == "" || lo.Contains(s.opts.AllowedOrigins, origin)
}

// TokenFromRequest 依次读取 token 查询参数和 Authorization 头，去掉 Bearer 前缀
func TokenFromRequest(r *http.Request) string {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = r.Header.Get("Authorization")
	}
	raw = strings.TrimSpace(raw)
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

// Authenticate 校验握手 Token，失败统一返回 ErrUnauthorized
func (s *Server) Authenticate(r *http.Request) (*jwt.Claims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		zap.L().Warn("ws handshake without token", zap.String("remote", r.RemoteAddr))
		return nil, errorx.ErrUnauthorized
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		zap.L().Warn("ws handshake token rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return nil, errorx.ErrUnauthorized
	}
	return claims, nil
}

// Upgrade 升级为 WebSocket 连接，注册到 Hub 后启动读写协程
// 升级失败时 upgrader 已经写回了 HTTP 错误
func (s *Server) Upgrade(w http.ResponseWriter, r *http.Request, claims *jwt.Claims) error {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return err
	}

	conn := newUserConn(ws, s.hub, uuid.NewString(), claims.UserID, claims.Email, s.opts.SendBufferSize, connOptions{
		writeWait:      s.opts.WriteWait,
		pongWait:       s.opts.PongWait,
		pingPeriod:     s.opts.PongWait * 9 / 10,
		maxMessageSize: s.opts.MaxMessageSize,
	})
	if err := s.hub.Register(conn); err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(s.opts.WriteWait))
		_ = ws.Close()
		return err
	}

	go conn.writePump()
	go conn.readPump(s.dispatcher)
	return nil
}

// ServeHTTP 鉴权并升级，供不经过 gin 的场景使用
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := s.Authenticate(r)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": errorx.CodeUnauthorized,
			"msg":  errorx.ErrUnauthorized.Msg,
			"data": nil,
		})
		return
	}
	_ = s.Upgrade(w, r, claims)
}
