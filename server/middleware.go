package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderRequestID 请求 id 的响应头
const HeaderRequestID = "X-Request-ID"

const ctxRequestID = "request_id"

// BearerAuth 校验 Bearer token，token 为空时不校验
// /healthz 不需要认证
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}

		const prefix = "Bearer "
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing Authorization header")
			return
		}
		if !strings.HasPrefix(header, prefix) {
			abortUnauthorized(c, "invalid Authorization header format, expected 'Bearer <token>'")
			return
		}
		if subtle.ConstantTimeCompare([]byte(header[len(prefix):]), []byte(token)) != 1 {
			abortUnauthorized(c, "invalid bearer token")
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"message": message,
			"type":    "authentication_error",
		},
	})
}

// RequestLogger 为每个请求分配 id 并记录访问日志
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)

		start := time.Now()
		c.Next()

		logger.Debug("HTTP 请求",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// requestLogger 返回带请求 id 的 logger
func requestLogger(c *gin.Context, logger *zap.Logger) *zap.Logger {
	if id := c.GetString(ctxRequestID); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}
