package movie

import (
	"strconv"

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
	Genre  string `form:"genre"`
	Q      string `form:"q"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// List 本地电影列表
func (h *Handler) List(c *gin.Context) {
	var q listQuery
	if err := validate.BindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	movies, total, err := h.svc.List(c.Request.Context(), ListQuery{
		Genre:  q.Genre,
		Title:  q.Q,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"items": movies, "total": total})
}

// Get 单部电影
func (h *Handler) Get(c *gin.Context) {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	m, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Search 查询外部目录
func (h *Handler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	p, err := h.svc.Search(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}
