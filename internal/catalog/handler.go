package catalog

import (
	"movienight/internal/response"

	"github.com/gin-gonic/gin"
)

// Handler 管理接口
type Handler struct {
	syncer *Syncer
}

func NewHandler(syncer *Syncer) *Handler {
	return &Handler{syncer: syncer}
}

// TriggerSync 立即执行一次同步，与定时任务串行
func (h *Handler) TriggerSync(c *gin.Context) {
	res, err := h.syncer.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
