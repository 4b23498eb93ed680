package friend

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

type sendRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type respondRequest struct {
	Action string `json:"action" binding:"required,oneof=accept reject"`
}

// SendRequest POST /api/friends/requests
func (h *Handler) SendRequest(c *gin.Context) {
	var req sendRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.svc.Request(c.Request.Context(), middleware.CurrentUserID(c), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}

// Respond PATCH /api/friends/requests/:id
func (h *Handler) Respond(c *gin.Context) {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req respondRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.svc.Respond(c.Request.Context(), middleware.CurrentUserID(c), id, req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

// Requests GET /api/friends/requests?direction=incoming|outgoing
func (h *Handler) Requests(c *gin.Context) {
	incoming := c.DefaultQuery("direction", "incoming") != "outgoing"
	list, err := h.svc.Requests(c.Request.Context(), middleware.CurrentUserID(c), incoming)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// List GET /api/friends
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.Friends(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Remove DELETE /api/friends/:userId
func (h *Handler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), middleware.CurrentUserID(c), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"removed": true})
}
