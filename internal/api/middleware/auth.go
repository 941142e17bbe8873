package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/console-hq/calleval_go_server/internal/pkg/response"
)

// APIKeyAuth 静态 Bearer Key 认证中间件,保护手动触发和管理接口
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			response.Unauthorized(c, "api key not configured")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			response.Unauthorized(c, "malformed authorization header")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			response.Unauthorized(c, "invalid api key")
			c.Abort()
			return
		}

		c.Next()
	}
}
