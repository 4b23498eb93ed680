package event

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

type addParticipantRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// Create 创建活动
func (h *Handler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}

// List 我主办或参与的活动，upcoming=true 时只看未开始的
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c), c.Query("upcoming") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

// Delete 删除活动
func (h *Handler) Delete(c *gin.Context) {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// AddParticipant 邀请用户
func (h *Handler) AddParticipant(c *gin.Context) {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req addParticipantRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.svc.AddParticipant(c.Request.Context(), middleware.CurrentUserID(c), id, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

// Leave 退出活动
func (h *Handler) Leave(c *gin.Context) {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.svc.Leave(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"left": true})
}
