package middleware

import (
	"strconv"
	"time"

	"movienight/internal/constants"
	"movienight/internal/metrics"
	"movienight/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLogger 请求日志，附带请求ID，同时记录请求耗时指标
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 获取请求ID，方便跟踪
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(constants.ContextRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		reqLog := log.With(zap.String("request_id", requestID))
		response.SetLogger(c, reqLog)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(latency.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if uid := CurrentUserID(c); uid != 0 {
			fields = append(fields, zap.Uint("user_id", uid))
		}
		switch {
		case status >= 500:
			reqLog.Error("请求完成", fields...)
		case status >= 400:
			reqLog.Warn("请求完成", fields...)
		default:
			reqLog.Info("请求完成", fields...)
		}
	}
}
