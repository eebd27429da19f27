package middleware

import (
	"net/http"
	"time"

	"DogiCord/logger"
	"DogiCord/tools/errs"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLog 每个请求一行；query 不打（里面可能有 token）
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("cost", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if u := c.GetString("username"); u != "" {
			fields = append(fields, zap.String("user", u))
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("[HTTP]", fields...)
		case status >= http.StatusBadRequest:
			logger.Info("[HTTP]", fields...)
		default:
			logger.Debug("[HTTP]", fields...)
		}
	}
}

// Recovery handler panic 转成 500 统一响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[HTTP] panic recovered", zap.Any("panic", r), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
				resp.Fail(c, errs.ErrPanic(r))
			}
		}()
		c.Next()
	}
}
