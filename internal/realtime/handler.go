package realtime

import (
	"net/http"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/identity"
	"movienight/internal/middleware"
	"movienight/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler 票据签发与 WebSocket 升级
type Handler struct {
	registry *Registry
	tickets  *middleware.TicketIssuer
	ids      *identity.Mapper
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(registry *Registry, tickets *middleware.TicketIssuer, ids *identity.Mapper, allowedOrigins []string, log *zap.Logger) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		registry: registry,
		tickets:  tickets,
		ids:      ids,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				_, wildcard := allowed["*"]
				return ok || wildcard
			},
		},
		log: log,
	}
}

// IssueTicket 为当前会话签发短期连接票据
func (h *Handler) IssueTicket(c *gin.Context) {
	u := middleware.CurrentUser(c)
	ticket, exp, err := h.tickets.GenerateTicket(u.PublicID)
	if err != nil {
		response.Error(c, apperr.Internal(err))
		return
	}
	response.OK(c, gin.H{"ticket": ticket, "expiresAt": exp})
}

// Connect 校验票据后升级为 WebSocket
func (h *Handler) Connect(c *gin.Context) {
	publicID, err := h.tickets.ValidateTicket(c.Query("ticket"))
	if err != nil {
		response.Error(c, apperr.Unauthenticated("invalid ticket"))
		return
	}
	userID, found, err := h.ids.Resolve(c.Request.Context(), publicID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.Error(c, apperr.Unauthenticated(constants.ErrUnauthenticated))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写入错误响应
		h.log.Warn("WebSocket升级失败", zap.Error(err))
		return
	}
	client := h.registry.Attach(conn, userID)

	client.sendFrame(constants.MessageTypeConnected, gin.H{"userId": publicID})
}
