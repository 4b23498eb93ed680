package notification

import (
	"movienight/internal/middleware"
	"movienight/internal/response"
	"movienight/internal/validate"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type listQuery struct {
	Unread bool `form:"unread"`
	Limit  int  `form:"limit" binding:"omitempty,min=1,max=100"`
}

// List 当前用户的通知
func (h *Handler) List(c *gin.Context) {
	var q listQuery
	if err := validate.BindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	uid := middleware.CurrentUserID(c)

	items, err := h.svc.List(ctx, uid, q.Unread, q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := h.svc.UnreadCount(ctx, uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"items": items, "unread": unread})
}

// MarkRead 单条已读
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n)
}

// MarkAllRead 全部已读
func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"updated": n})
}
