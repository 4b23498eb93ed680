package response

import (
	"errors"
	"net/http"

	"movienight/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope 统一响应结构
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// OK 200
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created 201
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Error 把错误映射为状态码并中止请求，内部错误只写日志
func Error(c *gin.Context, err error) {
	status := apperr.Status(err)
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: publicError(c, err, status)})
}

func publicError(c *gin.Context, err error, status int) any {
	log := Logger(c)
	switch status {
	case http.StatusInternalServerError:
		log.Error("请求处理失败", zap.String("path", c.FullPath()), zap.Error(err))
		return "internal server error"
	case http.StatusBadGateway:
		log.Warn("外部依赖失败", zap.String("path", c.FullPath()), zap.Error(err))
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return err.Error()
	}
	if len(ae.Fields) > 0 {
		return ae.Fields
	}
	return ae.Message
}

// loggerKey 由请求日志中间件写入
const loggerKey = "logger"

// SetLogger 在上下文中放入请求级 logger
func SetLogger(c *gin.Context, l *zap.Logger) {
	c.Set(loggerKey, l)
}

// Logger 取请求级 logger，没有时使用全局 logger
func Logger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.L()
}
