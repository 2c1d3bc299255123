package middleware

import (
	"net/http"
	"strings"

	"chat_gateway/pkg/errorx"
	"chat_gateway/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 上下文中的用户信息键
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  errorx.ErrUnauthorized.Msg,
		"data": nil,
	})
}

// JWTAuth JWT 认证中间件
// 验证 Authorization: Bearer <token> 并将用户信息存入上下文
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := jwt.ParseToken(parts[1])
		if err != nil {
			zap.L().Debug("jwt rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			abortUnauthorized(c)
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireRole 要求当前用户具有指定角色，需放在 JWTAuth 之后
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": errorx.CodeForbidden,
				"msg":  errorx.ErrForbidden.Msg,
				"data": nil,
			})
			return
		}
		c.Next()
	}
}
