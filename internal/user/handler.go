package user

import (
	"net/http"
	"time"

	"movienight/internal/middleware"
	"movienight/internal/model"
	"movienight/internal/response"
	"movienight/internal/validate"

	"github.com/gin-gonic/gin"
)

// CookieOptions 会话 cookie 设置
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Handler 账号相关接口
type Handler struct {
	svc    AccountService
	cookie CookieOptions
}

func NewHandler(svc AccountService, cookie CookieOptions) *Handler {
	return &Handler{svc: svc, cookie: cookie}
}

func (h *Handler) setSessionCookie(c *gin.Context, sess *model.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, sess.Token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
}

// Register 处理用户注册
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, res.Session)
	response.Created(c, gin.H{"user": toUserResponse(res.User), "token": res.Session.Token})
}

// Login 处理用户登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, res.Session)
	response.OK(c, gin.H{"user": toUserResponse(res.User), "token": res.Session.Token})
}

// Logout 删除会话并清除 cookie
func (h *Handler) Logout(c *gin.Context) {
	token := middleware.SessionToken(c, h.cookie.Name)
	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	response.OK(c, gin.H{"loggedOut": true})
}

// Me 当前用户信息
func (h *Handler) Me(c *gin.Context) {
	response.OK(c, toUserResponse(middleware.CurrentUser(c)))
}

// Search 搜索用户
func (h *Handler) Search(c *gin.Context) {
	users, err := h.svc.Search(c.Request.Context(), middleware.CurrentUserID(c), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, users)
}

// Profile 用户公开资料
func (h *Handler) Profile(c *gin.Context) {
	u, err := h.svc.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}
