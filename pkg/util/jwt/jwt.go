package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 自定义 JWT 声明
// 字段名与签发方保持一致: {userId, email, role}
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Manager 负责 Token 的校验（以及测试/开发工具使用的签发）
type Manager struct {
	secret []byte
	expiry time.Duration
	parser *jwt.Parser
}

// NewManager 创建 Token 管理器
// 只接受 HS256 签名，且 Token 必须携带过期时间
func NewManager(secret string, expiry time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		expiry: expiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := m.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no userId")
	}
	return claims, nil
}

// GenerateAccessToken 签发 Access Token
// 网关本身不对外签发 Token，此方法供测试和命令行工具使用
func (m *Manager) GenerateAccessToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat_gateway",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// 全局实例，由 Init 初始化，供 HTTP 中间件使用
var defaultManager *Manager

// Init 初始化全局 JWT 配置
func Init(secret string, accessExpiryMinutes int) *Manager {
	defaultManager = NewManager(secret, time.Duration(accessExpiryMinutes)*time.Minute)
	return defaultManager
}

// ParseToken 使用全局配置解析 Token
func ParseToken(tokenString string) (*Claims, error) {
	if defaultManager == nil {
		return nil, errors.New("jwt not initialized")
	}
	return defaultManager.ParseToken(tokenString)
}
