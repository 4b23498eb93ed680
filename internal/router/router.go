package router

import (
	"context"
	"net/http"
	"time"

	"movienight/internal/catalog"
	"movienight/internal/dashboard"
	"movienight/internal/event"
	"movienight/internal/friend"
	"movienight/internal/middleware"
	"movienight/internal/movie"
	"movienight/internal/notification"
	"movienight/internal/realtime"
	"movienight/internal/user"
	"movienight/internal/watch"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	User         *user.Handler
	Movie        *movie.Handler
	Catalog      *catalog.Handler
	Watch        *watch.Handler
	Friend       *friend.Handler
	Event        *event.Handler
	Notification *notification.Handler
	Dashboard    *dashboard.Handler
	Realtime     *realtime.Handler
}

// Options 路由参数
type Options struct {
	CORSOrigins []string
	CookieName  string
	Sessions    middleware.SessionResolver
	// Ping 健康检查，为空时始终返回 ok
	Ping func(ctx context.Context) error
}

// SetupRouter 配置所有路由
func SetupRouter(h *Handlers, opts Options, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS 配置
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestLogger(log))

	r.GET("/healthz", healthz(opts.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// ----- 无需认证的路由 -----
		api.POST("/auth/register", h.User.Register)
		api.POST("/auth/login", h.User.Login)

		// WebSocket 使用票据认证，不经过会话中间件
		api.GET("/ws", h.Realtime.Connect)

		// ----- 需要认证的路由 -----
		auth := api.Group("")
		auth.Use(middleware.Session(opts.Sessions, opts.CookieName))
		{
			// ----- 用户相关 -----
			auth.POST("/auth/logout", h.User.Logout)
			auth.GET("/auth/me", h.User.Me)
			auth.GET("/users/search", h.User.Search)
			auth.GET("/users/:id", h.User.Profile)

			// ----- 电影 -----
			auth.GET("/movies", h.Movie.List)
			auth.GET("/movies/search", h.Movie.Search)
			auth.GET("/movies/:id", h.Movie.Get)

			// ----- 推荐 -----
			auth.POST("/suggestions", h.Watch.CreateSuggestion)
			auth.GET("/suggestions", h.Watch.ListReceived)
			auth.GET("/suggestions/received", h.Watch.ListReceived)
			auth.GET("/suggestions/sent", h.Watch.ListSent)
			auth.PATCH("/suggestions/:id", h.Watch.RespondSuggestion)

			// ----- 想看 / 看过 -----
			auth.POST("/watch-desire", h.Watch.AddDesire)
			auth.GET("/watch-desire", h.Watch.ListDesires)
			auth.DELETE("/watch-desire/:movieId", h.Watch.RemoveDesire)

			auth.POST("/history", h.Watch.MarkWatched)
			auth.GET("/history", h.Watch.History)
			auth.DELETE("/history/:movieId", h.Watch.RemoveWatched)

			auth.PUT("/watchlist/:movieId", h.Watch.SetWatchlist)

			// ----- 好友相关 -----
			auth.GET("/friends", h.Friend.List)
			auth.POST("/friends/requests", h.Friend.SendRequest)
			auth.GET("/friends/requests", h.Friend.Requests)
			auth.PATCH("/friends/requests/:id", h.Friend.Respond)
			auth.DELETE("/friends/:userId", h.Friend.Remove)

			// ----- 通知 -----
			auth.GET("/notifications", h.Notification.List)
			auth.PATCH("/notifications/read-all", h.Notification.MarkAllRead)
			auth.PATCH("/notifications/:id/read", h.Notification.MarkRead)

			// ----- 观影活动 -----
			auth.POST("/events", h.Event.Create)
			auth.GET("/events", h.Event.List)
			auth.GET("/events/:id", h.Event.Get)
			auth.DELETE("/events/:id", h.Event.Delete)
			auth.POST("/events/:id/participants", h.Event.AddParticipant)
			auth.DELETE("/events/:id/participants/me", h.Event.Leave)

			auth.GET("/dashboard", h.Dashboard.Get)

			// 实时通道票据
			auth.POST("/realtime/ticket", h.Realtime.IssueTicket)

			// ----- 管理 -----
			admin := auth.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			admin.POST("/catalog/sync", h.Catalog.TriggerSync)
		}
	}

	return r
}

func healthz(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
