package middleware

import (
	"time"

	"CoolerPoker/internal/utils"

	"github.com/gin-gonic/gin"
)

// RequestLogger 替代 gin 默认日志，走统一的 charm logger
func RequestLogger() gin.HandlerFunc {
	l := utils.Log.WithPrefix("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if addr := c.GetString("address"); addr != "" {
			kv = append(kv, "address", addr)
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			l.Error("request", kv...)
		case status >= 400:
			l.Warn("request", kv...)
		default:
			l.Debug("request", kv...)
		}
	}
}
