package middleware

import (
	"context"
	"strings"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/model"
	"movienight/internal/response"

	"github.com/gin-gonic/gin"
)

// SessionResolver token -> 用户
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*model.User, error)
}

// Session 会话认证中间件，优先读取 cookie，其次 Authorization: Bearer
func Session(sessions SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			response.Error(c, apperr.Unauthenticated(constants.ErrUnauthenticated))
			return
		}

		u, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(constants.ContextUserID, u.ID)
		c.Set(constants.ContextUser, u)
		c.Next()
	}
}

// SessionToken 从请求中取会话 token
func SessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireAdmin 仅管理员可访问
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !u.IsAdmin() {
			response.Error(c, apperr.Forbidden())
			return
		}
		c.Next()
	}
}

// CurrentUserID 当前用户内部ID
func CurrentUserID(c *gin.Context) uint {
	return c.GetUint(constants.ContextUserID)
}

// CurrentUser 当前用户
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(constants.ContextUser)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}
